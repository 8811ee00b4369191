// Package feed defines the trolley feed: a push-style namespace of normalized
// product names to quantity strings, written by the RFID reader and mirrored
// by the cart engine.
package feed

import (
	"context"

	"github.com/VishalVrk/rfid-cart/internal/domain"
)

// Callback receives every snapshot a subscription delivers. Callbacks of one
// subscription run on a single goroutine, in delivery order.
type Callback func(snapshot domain.FeedSnapshot)

// Unsubscribe releases a subscription and waits for any running callback to
// return. It is safe to call more than once but must not be called from the
// callback itself.
type Unsubscribe func()

// Source is the read side of the feed.
type Source interface {
	// Subscribe delivers the current snapshot right away (empty when the
	// namespace does not exist yet) and a fresh one after every change.
	Subscribe(ctx context.Context, cb Callback) (Unsubscribe, error)

	// Snapshot reads the whole namespace once.
	Snapshot(ctx context.Context) (domain.FeedSnapshot, error)
}

// Mirror is the write side of the feed. Keys are lower-cased before use.
type Mirror interface {
	SetQuantity(ctx context.Context, key string, quantity int) error
	DeleteKey(ctx context.Context, key string) error
	// ResetNamespace removes every product key and leaves totalPrice = "0".
	ResetNamespace(ctx context.Context) error
	SetTotalPrice(ctx context.Context, total float64) error
}

// Adapter is a feed backend that can be both read and written.
type Adapter interface {
	Source
	Mirror
}
