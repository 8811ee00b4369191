package domain

import (
	"strconv"
	"strings"
)

// TotalPriceKey is the reserved feed key holding the aggregate cart price.
// Product keys are always lower-case, so it can never collide with one.
const TotalPriceKey = "totalPrice"

// FeedSnapshot maps normalized product names to decimal quantity strings as
// reported by the trolley. A missing key, "0", or anything that does not parse
// as a positive integer means the product is not in the trolley.
type FeedSnapshot map[string]string

// Quantity returns the reported quantity for the given product name, or 0.
func (s FeedSnapshot) Quantity(name string) int {
	raw, ok := s[NormalizeName(name)]
	if !ok {
		return 0
	}
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || qty < 0 {
		return 0
	}
	return qty
}

// Contains reports whether the feed lists the product with a positive quantity.
func (s FeedSnapshot) Contains(name string) bool {
	return s.Quantity(name) > 0
}

// Clone returns an independent copy of the snapshot.
func (s FeedSnapshot) Clone() FeedSnapshot {
	out := make(FeedSnapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// FormatQuantity renders a quantity the way the feed stores it.
func FormatQuantity(qty int) string {
	return strconv.Itoa(qty)
}

// FormatPrice renders an aggregate price the way the feed stores it.
func FormatPrice(total float64) string {
	return strconv.FormatFloat(total, 'f', -1, 64)
}
