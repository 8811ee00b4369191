package domain

// CartItem is a product in the cart together with its quantity.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// Subtotal returns price times quantity for the line.
func (i CartItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// CartState is the whole client-side cart. Items keep insertion order.
// TotalItems and TotalPrice are maintained incrementally by the transitions
// below and always equal the sums over Items within float tolerance.
type CartState struct {
	Items      []CartItem `json:"items"`
	TotalItems int        `json:"total_items"`
	TotalPrice float64    `json:"total_price"`
	FeedSynced bool       `json:"feed_synced"`
}

// EmptyCart returns a cart with no items.
func EmptyCart() CartState {
	return CartState{Items: []CartItem{}}
}

// Clone returns a deep copy so callers can never alias engine-owned memory.
func (c CartState) Clone() CartState {
	out := c
	out.Items = make([]CartItem, len(c.Items))
	copy(out.Items, c.Items)
	return out
}

// TotalAmount calculates the total price of all items from scratch.
func (c CartState) TotalAmount() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

// ItemCount returns the total number of units in the cart.
func (c CartState) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItemIndex returns the index of the item with the given product ID, or -1.
func (c CartState) FindItemIndex(productID string) int {
	for i := range c.Items {
		if c.Items[i].ID == productID {
			return i
		}
	}
	return -1
}

// Item returns the item with the given product ID.
func (c CartState) Item(productID string) (CartItem, bool) {
	idx := c.FindItemIndex(productID)
	if idx < 0 {
		return CartItem{}, false
	}
	return c.Items[idx], true
}

// WithItemAdded returns the cart with one more unit of p and the resulting line.
// An existing line keeps the price it was added at, so the extra unit is
// priced from the line rather than from p.
func (c CartState) WithItemAdded(p Product) (CartState, CartItem) {
	next := c.Clone()
	idx := next.FindItemIndex(p.ID)
	if idx >= 0 {
		next.Items[idx].Quantity++
	} else {
		next.Items = append(next.Items, CartItem{Product: p, Quantity: 1})
		idx = len(next.Items) - 1
	}
	next.TotalItems++
	next.TotalPrice += next.Items[idx].Price
	return next, next.Items[idx]
}

// WithItemRemoved drops the line for productID. The boolean is false, and the
// cart is returned untouched, when no such line exists.
func (c CartState) WithItemRemoved(productID string) (CartState, CartItem, bool) {
	idx := c.FindItemIndex(productID)
	if idx < 0 {
		return c, CartItem{}, false
	}
	removed := c.Items[idx]

	next := c
	next.Items = make([]CartItem, 0, len(c.Items)-1)
	next.Items = append(next.Items, c.Items[:idx]...)
	next.Items = append(next.Items, c.Items[idx+1:]...)
	next.TotalItems -= removed.Quantity
	next.TotalPrice -= removed.Subtotal()
	return next.settle(), removed, true
}

// WithQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line. The boolean is false when no such line exists.
func (c CartState) WithQuantity(productID string, quantity int) (CartState, CartItem, bool) {
	if quantity <= 0 {
		return c.WithItemRemoved(productID)
	}
	idx := c.FindItemIndex(productID)
	if idx < 0 {
		return c, CartItem{}, false
	}

	next := c.Clone()
	delta := quantity - next.Items[idx].Quantity
	next.Items[idx].Quantity = quantity
	next.TotalItems += delta
	next.TotalPrice += next.Items[idx].Price * float64(delta)
	return next, next.Items[idx], true
}

// Cleared returns an empty cart that keeps only the feed-synced flag.
func (c CartState) Cleared() CartState {
	next := EmptyCart()
	next.FeedSynced = c.FeedSynced
	return next
}

// Reconciled builds the cart the trolley feed says should exist: every catalog
// product with a positive feed quantity, at exactly that quantity. Nothing from
// the previous cart survives, and aggregates are recomputed from scratch.
func Reconciled(catalog []Product, snapshot FeedSnapshot) CartState {
	next := EmptyCart()
	seen := make(map[string]struct{}, len(catalog))
	for _, p := range catalog {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		qty := snapshot.Quantity(p.Name)
		if qty <= 0 {
			continue
		}
		seen[p.ID] = struct{}{}
		next.Items = append(next.Items, CartItem{Product: p, Quantity: qty})
	}
	next.TotalItems = next.ItemCount()
	next.TotalPrice = next.TotalAmount()
	next.FeedSynced = true
	return next
}

// settle zeroes the aggregates once the cart is empty so float residue from
// incremental subtraction does not linger.
func (c CartState) settle() CartState {
	if len(c.Items) == 0 {
		c.TotalItems = 0
		c.TotalPrice = 0
	}
	return c
}
