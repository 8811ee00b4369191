// Package engine owns the in-memory cart and keeps it consistent with the
// trolley feed and the persisted snapshot.
//
// A single goroutine applies every transition in the order callers submit
// them. Mirrored writes to the feed and the store are handed to two
// independent sink goroutines and are never awaited, so they may land out of
// order relative to each other and to later transitions.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	"github.com/VishalVrk/rfid-cart/pkg/breaker"
)

const tracerName = "github.com/VishalVrk/rfid-cart/internal/engine"

// Operation names used in logs and metrics.
const (
	OpAddItem     = "add_item"
	OpRemoveItem  = "remove_item"
	OpSetQuantity = "set_quantity"
	OpClearCart   = "clear_cart"
	OpReconcile   = "reconcile"
	opState       = "state"
)

// FeedMirror is the write side of the trolley feed. Keys are normalized
// product names.
type FeedMirror interface {
	SetQuantity(ctx context.Context, key string, quantity int) error
	DeleteKey(ctx context.Context, key string) error
	ResetNamespace(ctx context.Context) error
	SetTotalPrice(ctx context.Context, total float64) error
}

// StateStore persists the whole cart between sessions.
type StateStore interface {
	Load(ctx context.Context) (domain.CartState, error)
	Save(ctx context.Context, state domain.CartState) error
}

// Options tunes the mirror sinks.
type Options struct {
	// FeedQueueSize bounds the number of feed writes waiting to be sent.
	// Writes beyond it are dropped.
	FeedQueueSize int

	// WriteTimeout bounds a single mirrored write.
	WriteTimeout time.Duration

	// DrainTimeout bounds how long Close waits for queued writes.
	DrainTimeout time.Duration

	// Breaker guards the feed mirror.
	Breaker breaker.Config
}

// DefaultOptions returns sensible defaults for the engine.
func DefaultOptions() Options {
	return Options{
		FeedQueueSize: 256,
		WriteTimeout:  5 * time.Second,
		DrainTimeout:  5 * time.Second,
		Breaker:       breaker.DefaultConfig("trolley-feed"),
	}
}

// transition is the outcome of applying one command to the current state.
type transition struct {
	state   domain.CartState
	changed bool
	writes  []feedWrite
}

type command struct {
	op    string
	apply func(domain.CartState) transition
	reply chan result
}

type result struct {
	state   domain.CartState
	changed bool
}

// Engine is the single writer of the cart state.
type Engine struct {
	cmds chan command
	quit chan struct{}
	done chan struct{}

	closeOnce    sync.Once
	drainTimeout time.Duration

	mu    sync.Mutex
	final domain.CartState

	feed   *feedSink
	store  *storeSink
	logger *slog.Logger
}

// Open loads the persisted cart once and starts an engine on it. A load
// failure is logged and the engine starts empty. The loaded state is never
// considered synced with the feed.
func Open(ctx context.Context, store StateStore, feed FeedMirror, logger *slog.Logger, opts Options) *Engine {
	state, err := store.Load(ctx)
	if err != nil {
		logger.WarnContext(ctx, "failed to load persisted cart, starting empty",
			slog.String("error", err.Error()),
		)
		state = domain.EmptyCart()
	}
	if state.Items == nil {
		state.Items = []domain.CartItem{}
	}
	state.FeedSynced = false

	logger.InfoContext(ctx, "cart engine opened",
		slog.Int("total_items", state.TotalItems),
		slog.Float64("total_price", state.TotalPrice),
	)
	return New(state, store, feed, logger, opts)
}

// New starts an engine on the given initial state without touching the store.
func New(initial domain.CartState, store StateStore, feed FeedMirror, logger *slog.Logger, opts Options) *Engine {
	if opts.FeedQueueSize <= 0 {
		opts.FeedQueueSize = DefaultOptions().FeedQueueSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultOptions().WriteTimeout
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = DefaultOptions().DrainTimeout
	}
	if opts.Breaker.Name == "" {
		opts.Breaker = DefaultOptions().Breaker
	}

	e := &Engine{
		cmds:         make(chan command),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		drainTimeout: opts.DrainTimeout,
		feed:         newFeedSink(feed, opts, logger),
		store:        newStoreSink(store, opts, logger),
		logger:       logger,
	}

	go e.feed.run()
	go e.store.run()
	go e.run(initial.Clone())

	return e
}

// AddItem adds one unit of p and mirrors the new quantity to the feed.
func (e *Engine) AddItem(p domain.Product) domain.CartState {
	state, _ := e.do(OpAddItem, func(s domain.CartState) transition {
		next, line := s.WithItemAdded(p)
		return transition{
			state:   next,
			changed: true,
			writes: []feedWrite{
				{op: feedSetQuantity, key: domain.NormalizeName(line.Name), quantity: line.Quantity},
				{op: feedSetTotalPrice, total: next.TotalPrice},
			},
		}
	})
	return state
}

// RemoveItem drops the line for productID. Unknown IDs are a no-op and
// report false.
func (e *Engine) RemoveItem(productID string) (domain.CartState, bool) {
	return e.do(OpRemoveItem, func(s domain.CartState) transition {
		next, removed, ok := s.WithItemRemoved(productID)
		if !ok {
			return transition{state: s}
		}
		return transition{
			state:   next,
			changed: true,
			writes: []feedWrite{
				{op: feedDeleteKey, key: domain.NormalizeName(removed.Name)},
				{op: feedSetTotalPrice, total: next.TotalPrice},
			},
		}
	})
}

// SetQuantity replaces the quantity of an existing line. A quantity of zero
// or less removes it. Unknown IDs are a no-op and report false.
func (e *Engine) SetQuantity(productID string, quantity int) (domain.CartState, bool) {
	return e.do(OpSetQuantity, func(s domain.CartState) transition {
		next, line, ok := s.WithQuantity(productID, quantity)
		if !ok {
			return transition{state: s}
		}
		key := domain.NormalizeName(line.Name)
		write := feedWrite{op: feedSetQuantity, key: key, quantity: line.Quantity}
		if quantity <= 0 {
			write = feedWrite{op: feedDeleteKey, key: key}
		}
		return transition{
			state:   next,
			changed: true,
			writes:  []feedWrite{write, {op: feedSetTotalPrice, total: next.TotalPrice}},
		}
	})
}

// ClearCart empties the cart, keeping only the feed-synced flag, and resets
// the feed namespace.
func (e *Engine) ClearCart() domain.CartState {
	state, _ := e.do(OpClearCart, func(s domain.CartState) transition {
		return transition{
			state:   s.Cleared(),
			changed: true,
			writes:  []feedWrite{{op: feedResetNamespace}},
		}
	})
	return state
}

// Reconcile replaces the cart with the one the feed snapshot describes for
// the given catalog. An empty catalog defers reconciliation and changes
// nothing. The result is persisted but not mirrored back to the feed.
func (e *Engine) Reconcile(catalog []domain.Product, snapshot domain.FeedSnapshot) domain.CartState {
	if len(catalog) == 0 {
		e.logger.Debug("reconciliation deferred, catalog is empty")
		return e.State()
	}
	products := make([]domain.Product, len(catalog))
	copy(products, catalog)
	snap := snapshot.Clone()

	state, _ := e.do(OpReconcile, func(domain.CartState) transition {
		return transition{state: domain.Reconciled(products, snap), changed: true}
	})
	return state
}

// State returns a copy of the current cart.
func (e *Engine) State() domain.CartState {
	state, _ := e.do(opState, func(s domain.CartState) transition {
		return transition{state: s}
	})
	return state
}

// Close stops the engine and waits for queued mirror writes, up to the drain
// timeout. Later calls return the last state and have no side effects. Close
// is safe to call more than once.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.quit)
		<-e.done

		// Only the run loop enqueues, so the queues can be closed now.
		e.feed.closeQueue()
		e.store.closeQueue()

		timer := time.NewTimer(e.drainTimeout)
		defer timer.Stop()
		for _, done := range []<-chan struct{}{e.feed.done, e.store.done} {
			select {
			case <-done:
			case <-timer.C:
				e.logger.Warn("mirror drain timed out, canceling pending writes")
				e.feed.cancel()
				e.store.cancel()
				<-done
			}
		}
		e.feed.cancel()
		e.store.cancel()

		e.logger.Info("cart engine closed")
	})
}

func (e *Engine) do(op string, apply func(domain.CartState) transition) (domain.CartState, bool) {
	cmd := command{op: op, apply: apply, reply: make(chan result, 1)}
	select {
	case e.cmds <- cmd:
		r := <-cmd.reply
		return r.state, r.changed
	case <-e.done:
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.final.Clone(), false
	}
}

func (e *Engine) run(state domain.CartState) {
	defer close(e.done)
	for {
		select {
		case cmd := <-e.cmds:
			t := cmd.apply(state)
			if t.changed {
				state = t.state
				e.publish(cmd.op, state, t.writes)
			} else if cmd.op != opState {
				noopsTotal.WithLabelValues(cmd.op).Inc()
			}
			cmd.reply <- result{state: state.Clone(), changed: t.changed}
		case <-e.quit:
			e.mu.Lock()
			e.final = state
			e.mu.Unlock()
			return
		}
	}
}

// publish records a transition and hands its side effects to the sinks.
// Transitions never mutate Items in place, so the sinks may share the slice.
func (e *Engine) publish(op string, state domain.CartState, writes []feedWrite) {
	transitionsTotal.WithLabelValues(op).Inc()
	cartItemsGauge.Set(float64(state.TotalItems))
	cartPriceGauge.Set(state.TotalPrice)

	e.logger.Debug("cart transition applied",
		slog.String("operation", op),
		slog.Int("total_items", state.TotalItems),
		slog.Float64("total_price", state.TotalPrice),
		slog.Bool("feed_synced", state.FeedSynced),
	)

	e.store.enqueue(state)
	for _, w := range writes {
		e.feed.enqueue(w)
	}
}
