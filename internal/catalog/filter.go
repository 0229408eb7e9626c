package catalog

import (
	"sort"
	"strings"
)

// Filter narrows a variety list the way the inventory screens do.
// Zero values match everything.
type Filter struct {
	Category Category
	Query    string
}

func (f Filter) Match(v Variety) bool {
	if f.Category != "" && v.Category != f.Category {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	return q == "" || strings.Contains(strings.ToLower(v.Name), q)
}

func (f Filter) Apply(vs []Variety) []Variety {
	out := make([]Variety, 0, len(vs))
	for _, v := range vs {
		if f.Match(v) {
			out = append(out, v)
		}
	}
	return out
}

// SortForDisplay orders by category then name.
func SortForDisplay(vs []Variety) {
	sort.SliceStable(vs, func(i, j int) bool {
		ri, rj := vs[i].Category.rank(), vs[j].Category.rank()
		if ri != rj {
			return ri < rj
		}
		return vs[i].Name < vs[j].Name
	})
}
