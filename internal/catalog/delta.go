package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// ApplyDelta evaluates a stock adjustment expression against current:
// "+N" adds, "-N" subtracts (floored at zero) and a bare "N" sets the value.
// ok is false when the expression does not parse or the result would exceed
// MaxStock; current is returned as-is.
func ApplyDelta(expr string, current int) (next int, ok bool) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return current, false
	}

	switch s[0] {
	case '+':
		n, err := strconv.Atoi(s[1:])
		if err != nil || n < 0 || n > MaxStock-current {
			return current, false
		}
		return current + n, true
	case '-':
		n, err := strconv.Atoi(s[1:])
		if err != nil || n < 0 {
			return current, false
		}
		return max(0, current-n), true
	default:
		n, err := strconv.Atoi(s)
		if err != nil || n > MaxStock {
			return current, false
		}
		return max(0, n), true
	}
}

var tallyTotal = regexp.MustCompile(`\((\d+)\)`)

// ParseTally reads a stock-sheet cell such as "5+7+5+8(25)". A parenthesised
// figure is the authoritative total; otherwise the "+"-separated counts are
// summed. Empty cells and "NA" count as zero. Totals above MaxStock are
// rejected.
func ParseTally(expr string) (int, bool) {
	s := strings.TrimSpace(expr)
	if s == "" || strings.EqualFold(s, "NA") {
		return 0, true
	}
	if m := tallyTotal.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > MaxStock {
			return 0, false
		}
		return n, true
	}

	total := 0
	for _, part := range strings.Split(s, "+") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > MaxStock-total {
			return 0, false
		}
		total += n
	}
	return total, true
}
