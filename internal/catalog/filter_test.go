package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []Variety {
	return []Variety{
		{ID: "mb-1", Name: "Mango", Category: CategoryMilkBase},
		{ID: "wb-1", Name: "Mango", Category: CategoryWaterBase},
		{ID: "tb-1", Name: "Vanilla - 4 L", Category: CategoryTubs},
		{ID: "wb-0", Name: "Blueberry", Category: CategoryWaterBase},
		{ID: "fp-0", Name: "Chocolate - 500ml", Category: CategoryFamilyPack},
	}
}

func TestFilter_Apply(t *testing.T) {
	all := sample()

	assert.Len(t, Filter{}.Apply(all), len(all))

	got := Filter{Query: "MANGO"}.Apply(all)
	require.Len(t, got, 2)
	assert.Equal(t, "mb-1", got[0].ID)
	assert.Equal(t, "wb-1", got[1].ID)

	got = Filter{Category: CategoryWaterBase, Query: "man"}.Apply(all)
	require.Len(t, got, 1)
	assert.Equal(t, "wb-1", got[0].ID)

	assert.Empty(t, Filter{Category: CategoryTubs, Query: "mango"}.Apply(all))
}

func TestSortForDisplay(t *testing.T) {
	vs := sample()
	SortForDisplay(vs)

	ids := make([]string, 0, len(vs))
	for _, v := range vs {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"wb-0", "wb-1", "mb-1", "fp-0", "tb-1"}, ids)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" milk base ")
	require.NoError(t, err)
	assert.Equal(t, CategoryMilkBase, c)

	_, err = ParseCategory("SORBET")
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestVariety_Validate(t *testing.T) {
	ok := Variety{Name: "Pista", Category: CategoryMilkBase, Stock: 3, CostCents: 4000, PriceCents: 6000}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Stock = -1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidVariety)

	bad.Stock = MaxStock + 1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidVariety)

	bad = ok
	bad.Category = "SORBET"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidCategory)

	bad = ok
	bad.Name = " "
	assert.ErrorIs(t, bad.Validate(), ErrInvalidVariety)
}
