package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const priceDelta = 1e-9

func apple() Product  { return Product{ID: "1", Name: "Apple", Price: 2.00, Stock: 10} }
func mango() Product  { return Product{ID: "2", Name: "Mango", Price: 1.50, Stock: 10} }
func tomato() Product { return Product{ID: "3", Name: "Tomato", Price: 0.35, Stock: 40} }

func assertAggregates(t *testing.T, c CartState) {
	t.Helper()
	assert.Equal(t, c.ItemCount(), c.TotalItems, "total items must equal sum of quantities")
	assert.InDelta(t, c.TotalAmount(), c.TotalPrice, priceDelta, "total price must equal sum of subtotals")
}

// ============================================================================
// Aggregates
// ============================================================================

func TestTotalAmount_MultipleItems(t *testing.T) {
	c := CartState{
		Items: []CartItem{
			{Product: Product{Price: 10}, Quantity: 2},
			{Product: Product{Price: 5}, Quantity: 3},
			{Product: Product{Price: 25}, Quantity: 1},
		},
	}
	assert.InDelta(t, 60.0, c.TotalAmount(), priceDelta)
	assert.Equal(t, 6, c.ItemCount())
}

func TestTotalAmount_EmptyCart(t *testing.T) {
	assert.Zero(t, EmptyCart().TotalAmount())
	assert.Zero(t, CartState{}.ItemCount())
}

// ============================================================================
// WithItemAdded
// ============================================================================

func TestWithItemAdded_CountsRepeatedCalls(t *testing.T) {
	c := EmptyCart()
	c, _ = c.WithItemAdded(mango())
	c, _ = c.WithItemAdded(apple())
	c, _ = c.WithItemAdded(apple())
	c, line := c.WithItemAdded(apple())

	assert.Equal(t, 3, line.Quantity)
	require.Len(t, c.Items, 2)
	item, ok := c.Item("1")
	require.True(t, ok)
	assert.Equal(t, 3, item.Quantity)
	other, _ := c.Item("2")
	assert.Equal(t, 1, other.Quantity)
	assertAggregates(t, c)
}

func TestWithItemAdded_MangoTwice(t *testing.T) {
	c := EmptyCart()
	c, _ = c.WithItemAdded(mango())
	c, _ = c.WithItemAdded(mango())

	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 2, c.TotalItems)
	assert.InDelta(t, 3.00, c.TotalPrice, priceDelta)
}

func TestWithItemAdded_RepricedProductKeepsAggregatesConsistent(t *testing.T) {
	c := EmptyCart()
	c, _ = c.WithItemAdded(apple())

	repriced := apple()
	repriced.Price = 3.25
	c, line := c.WithItemAdded(repriced)

	assert.Equal(t, 2, line.Quantity)
	assert.InDelta(t, 2.00, line.Price, priceDelta)
	assert.InDelta(t, 4.00, c.TotalPrice, priceDelta)
	assertAggregates(t, c)
}

func TestWithItemAdded_DoesNotAliasOriginal(t *testing.T) {
	c, _ := EmptyCart().WithItemAdded(apple())
	next, _ := c.WithItemAdded(apple())

	assert.Equal(t, 1, c.Items[0].Quantity)
	assert.Equal(t, 2, next.Items[0].Quantity)
}

// ============================================================================
// WithItemRemoved
// ============================================================================

func TestWithItemRemoved_Existing(t *testing.T) {
	c, _ := EmptyCart().WithItemAdded(apple())
	c, _ = c.WithItemAdded(apple())
	c, _ = c.WithItemAdded(mango())

	next, removed, ok := c.WithItemRemoved("1")

	require.True(t, ok)
	assert.Equal(t, 2, removed.Quantity)
	require.Len(t, next.Items, 1)
	assert.Equal(t, "2", next.Items[0].ID)
	assertAggregates(t, next)
}

func TestWithItemRemoved_UnknownIsNoop(t *testing.T) {
	c, _ := EmptyCart().WithItemAdded(apple())
	c.FeedSynced = true

	next, _, ok := c.WithItemRemoved("missing")

	assert.False(t, ok)
	assert.Equal(t, c, next)
}

func TestWithItemRemoved_LastItemZeroesAggregates(t *testing.T) {
	c := EmptyCart()
	for i := 0; i < 7; i++ {
		c, _ = c.WithItemAdded(tomato())
	}
	next, _, ok := c.WithItemRemoved("3")

	require.True(t, ok)
	assert.Empty(t, next.Items)
	assert.Zero(t, next.TotalItems)
	assert.Zero(t, next.TotalPrice)
}

// ============================================================================
// WithQuantity
// ============================================================================

func TestWithQuantity_AdjustsByDelta(t *testing.T) {
	c, _ := EmptyCart().WithItemAdded(apple())
	c, _ = c.WithItemAdded(mango())

	next, line, ok := c.WithQuantity("1", 5)

	require.True(t, ok)
	assert.Equal(t, 5, line.Quantity)
	assert.Equal(t, 6, next.TotalItems)
	assert.InDelta(t, 11.50, next.TotalPrice, priceDelta)
	assertAggregates(t, next)

	next, _, _ = next.WithQuantity("1", 2)
	assert.Equal(t, 3, next.TotalItems)
	assertAggregates(t, next)
}

func TestWithQuantity_NonPositiveMatchesRemove(t *testing.T) {
	c, _ := EmptyCart().WithItemAdded(apple())
	c, _ = c.WithItemAdded(mango())
	removed, _, _ := c.WithItemRemoved("1")

	for _, qty := range []int{0, -5} {
		next, _, ok := c.WithQuantity("1", qty)
		require.True(t, ok)
		assert.Equal(t, removed, next, "quantity %d", qty)
	}
}

func TestWithQuantity_UnknownIsNoop(t *testing.T) {
	c, _ := EmptyCart().WithItemAdded(apple())

	next, _, ok := c.WithQuantity("missing", 4)

	assert.False(t, ok)
	assert.Equal(t, c, next)
}

// ============================================================================
// Cleared
// ============================================================================

func TestCleared_PreservesFeedSynced(t *testing.T) {
	for _, synced := range []bool{true, false} {
		c, _ := EmptyCart().WithItemAdded(apple())
		c.FeedSynced = synced

		next := c.Cleared()

		assert.Empty(t, next.Items)
		assert.Zero(t, next.TotalItems)
		assert.Zero(t, next.TotalPrice)
		assert.Equal(t, synced, next.FeedSynced)
	}
}

// ============================================================================
// Reconciled
// ============================================================================

func TestReconciled_AppleExample(t *testing.T) {
	c := Reconciled([]Product{apple()}, FeedSnapshot{"apple": "3"})

	require.Len(t, c.Items, 1)
	assert.Equal(t, "1", c.Items[0].ID)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 3, c.TotalItems)
	assert.InDelta(t, 6.00, c.TotalPrice, priceDelta)
	assert.True(t, c.FeedSynced)
}

func TestReconciled_Idempotent(t *testing.T) {
	catalog := []Product{apple(), mango(), tomato()}
	snap := FeedSnapshot{"apple": "2", "tomato": "5", "mango": "0", TotalPriceKey: "5.75"}

	assert.Equal(t, Reconciled(catalog, snap), Reconciled(catalog, snap))
}

func TestReconciled_IgnoresAbsentZeroAndGarbage(t *testing.T) {
	catalog := []Product{apple(), mango(), tomato()}
	snap := FeedSnapshot{"mango": "0", "tomato": "lots"}

	c := Reconciled(catalog, snap)

	assert.Empty(t, c.Items)
	assert.Zero(t, c.TotalPrice)
	assert.True(t, c.FeedSynced)
}

func TestReconciled_MatchesCaseInsensitively(t *testing.T) {
	p := Product{ID: "9", Name: "Green Apple", Price: 1}

	c := Reconciled([]Product{p}, FeedSnapshot{"green apple": "4"})

	require.Len(t, c.Items, 1)
	assert.Equal(t, 4, c.Items[0].Quantity)
}

func TestReconciled_SkipsDuplicateIDs(t *testing.T) {
	c := Reconciled([]Product{apple(), apple()}, FeedSnapshot{"apple": "1"})

	require.Len(t, c.Items, 1)
	assertAggregates(t, c)
}
