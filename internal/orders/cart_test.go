package orders

import (
	"testing"

	"github.com/ariefcatur/icebay-pos/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variety(id string, stock int, price int64) catalog.Variety {
	return catalog.Variety{ID: id, Name: "flavor-" + id, Category: catalog.CategoryMilkBase, Stock: stock, CostCents: price / 2, PriceCents: price}
}

func TestCart_AddItemMergesLines(t *testing.T) {
	var c Cart
	mango := variety("mango", 5, 6000)

	require.NoError(t, c.AddItem(mango, 0))
	require.NoError(t, c.AddItem(mango, 2))

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 3, c.Quantity("mango"))
	assert.Equal(t, int64(18000), c.Lines[0].LineTotalCents)
	assert.Equal(t, int64(18000), c.Total())
}

func TestCart_AddItemRespectsStock(t *testing.T) {
	var c Cart
	pista := variety("pista", 3, 5000)

	require.NoError(t, c.AddItem(pista, 2))
	err := c.AddItem(pista, 2)

	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, "pista", ise.VarietyID)
	assert.Equal(t, 4, ise.Requested)
	assert.Equal(t, 3, ise.Available)
	assert.Equal(t, 2, c.Quantity("pista"), "failed add must not change the cart")
}

func TestCart_SetQuantityKeepsSnapshotPrice(t *testing.T) {
	var c Cart
	v := variety("oreo", 10, 7000)
	require.NoError(t, c.AddItem(v, 1))

	v.PriceCents = 9900
	require.NoError(t, c.SetQuantity(v, 4))

	assert.Equal(t, int64(7000), c.Lines[0].UnitPriceCents)
	assert.Equal(t, int64(28000), c.Total())
}

func TestCart_SetQuantity(t *testing.T) {
	var c Cart
	v := variety("kitkat", 4, 6500)
	require.NoError(t, c.AddItem(v, 1))

	assert.ErrorIs(t, c.SetQuantity(v, 5), ErrInsufficientStock)
	assert.Equal(t, 1, c.Quantity("kitkat"))

	assert.ErrorIs(t, c.SetQuantity(variety("other", 9, 100), 1), ErrLineNotFound)

	require.NoError(t, c.SetQuantity(v, 0))
	assert.Equal(t, 0, c.Len())
}

func TestCart_RemoveAndClear(t *testing.T) {
	var c Cart
	require.NoError(t, c.AddItem(variety("a", 5, 100), 1))
	require.NoError(t, c.AddItem(variety("b", 5, 200), 2))
	c.EditingOrderID = "order-1"

	c.RemoveItem("a")
	c.RemoveItem("missing")
	require.Equal(t, 1, c.Len())
	assert.Equal(t, "b", c.Lines[0].VarietyID)
	assert.Equal(t, int64(400), c.Total())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.EditingOrderID)
	assert.Zero(t, c.Total())
}

func TestCart_TotalIsSumOfLines(t *testing.T) {
	var c Cart
	for i, p := range []int64{1250, 999, 6000, 1} {
		require.NoError(t, c.AddItem(variety(string(rune('a'+i)), 100, p), i+1))
	}

	var want int64
	for _, l := range c.Lines {
		want += int64(l.Quantity) * l.UnitPriceCents
	}
	assert.Equal(t, want, c.Total())
}

func TestCart_LoadFrom(t *testing.T) {
	o := Order{
		ID:     "order-7",
		Status: StatusUnpaid,
		Items: []OrderItem{
			{VarietyID: "a", Name: "A", Quantity: 2, UnitPriceCents: 500, LineTotalCents: 1000},
		},
		TotalCents: 1000,
	}

	var c Cart
	require.NoError(t, c.AddItem(variety("z", 5, 100), 1))
	require.NoError(t, c.LoadFrom(o))

	assert.Equal(t, "order-7", c.EditingOrderID)
	require.Equal(t, 1, c.Len())
	assert.Equal(t, "a", c.Lines[0].VarietyID)

	c.Lines[0].Quantity = 9
	assert.Equal(t, 2, o.Items[0].Quantity, "cart must hold a copy of the items")

	o.Status = StatusPaid
	var locked Cart
	assert.ErrorIs(t, locked.LoadFrom(o), ErrOrderLocked)
	assert.Equal(t, 0, locked.Len())
}
