package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	"github.com/VishalVrk/rfid-cart/internal/event"
	"github.com/VishalVrk/rfid-cart/internal/feed"
)

// CartEngine is the single writer of the cart state.
type CartEngine interface {
	AddItem(p domain.Product) domain.CartState
	RemoveItem(productID string) (domain.CartState, bool)
	SetQuantity(productID string, quantity int) (domain.CartState, bool)
	ClearCart() domain.CartState
	Reconcile(catalog []domain.Product, snapshot domain.FeedSnapshot) domain.CartState
	State() domain.CartState
	Close()
}

// ProductCatalog is the read side of the catalog the cart resolves products from.
type ProductCatalog interface {
	ListProducts(ctx context.Context, category *string) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// CartEventPublisher publishes cart events.
type CartEventPublisher interface {
	PublishCartUpdated(ctx context.Context, op, productID string, state domain.CartState) error
	PublishCartCleared(ctx context.Context, previous domain.CartState) error
}

// CartSession owns the cart engine and the trolley feed subscription for the
// lifetime of the process.
type CartSession struct {
	engine  CartEngine
	source  feed.Source
	catalog ProductCatalog
	events  CartEventPublisher
	logger  *slog.Logger

	mu           sync.Mutex
	snapshot     domain.FeedSnapshot
	seenSnapshot bool

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe feed.Unsubscribe
	stopOnce    sync.Once
}

// NewCartSession creates a session around an already opened engine.
func NewCartSession(engine CartEngine, source feed.Source, catalog ProductCatalog, events CartEventPublisher, logger *slog.Logger) *CartSession {
	return &CartSession{
		engine:  engine,
		source:  source,
		catalog: catalog,
		events:  events,
		logger:  logger,
	}
}

// Start subscribes to the trolley feed. Every snapshot the feed delivers
// reconciles the cart against a freshly fetched catalog, so catalog edits made
// since the last snapshot are taken into account. When the catalog is empty or
// cannot be fetched the reconciliation is deferred to the next snapshot.
func (s *CartSession) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))

	unsubscribe, err := s.source.Subscribe(s.ctx, s.onSnapshot)
	if err != nil {
		return fmt.Errorf("subscribe to trolley feed: %w", err)
	}

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "cart session started")
	return nil
}

// RefreshCatalog re-reads the catalog and, when a feed snapshot has been
// seen, reconciles the cart against the latest one.
func (s *CartSession) RefreshCatalog(ctx context.Context) (domain.CartState, error) {
	products, err := s.catalog.ListProducts(ctx, nil)
	if err != nil {
		return s.engine.State(), fmt.Errorf("refresh catalog: %w", err)
	}

	s.mu.Lock()
	snapshot, seen := s.snapshot, s.seenSnapshot
	s.mu.Unlock()

	if len(products) == 0 || !seen {
		return s.engine.State(), nil
	}
	return s.engine.Reconcile(products, snapshot), nil
}

// GetCart returns the current cart.
func (s *CartSession) GetCart() domain.CartState {
	return s.engine.State()
}

// AddItem adds one unit of the product with the given ID.
func (s *CartSession) AddItem(ctx context.Context, productID string) (domain.CartState, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return domain.CartState{}, fmt.Errorf("resolve product: %w", err)
	}

	state := s.engine.AddItem(*product)
	s.publishUpdated(ctx, event.CartOpAddItem, productID, state)
	return state, nil
}

// RemoveItem removes the product from the cart. Unknown IDs leave the cart
// untouched.
func (s *CartSession) RemoveItem(ctx context.Context, productID string) domain.CartState {
	state, changed := s.engine.RemoveItem(productID)
	if changed {
		s.publishUpdated(ctx, event.CartOpRemoveItem, productID, state)
	}
	return state
}

// UpdateQuantity sets the quantity of a product already in the cart. A
// quantity of zero or less removes it. Unknown IDs leave the cart untouched.
func (s *CartSession) UpdateQuantity(ctx context.Context, productID string, quantity int) domain.CartState {
	state, changed := s.engine.SetQuantity(productID, quantity)
	if !changed {
		return state
	}

	op := event.CartOpSetQuantity
	if quantity <= 0 {
		op = event.CartOpRemoveItem
	}
	s.publishUpdated(ctx, op, productID, state)
	return state
}

// ClearCart empties the cart.
func (s *CartSession) ClearCart(ctx context.Context) domain.CartState {
	previous := s.engine.State()
	state := s.engine.ClearCart()

	if err := s.events.PublishCartCleared(ctx, previous); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("error", err.Error()),
		)
	}
	return state
}

// Stop cancels in-flight catalog fetches, releases the feed subscription and
// closes the engine. Only the first call has an effect.
func (s *CartSession) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}

		s.mu.Lock()
		unsubscribe := s.unsubscribe
		s.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		s.engine.Close()
		s.logger.Info("cart session stopped")
	})
}

func (s *CartSession) onSnapshot(snapshot domain.FeedSnapshot) {
	s.mu.Lock()
	s.snapshot = snapshot.Clone()
	s.seenSnapshot = true
	s.mu.Unlock()

	products := s.loadCatalog(s.ctx)
	if len(products) == 0 {
		s.logger.Debug("catalog empty, reconciliation deferred",
			slog.Int("feed_keys", len(snapshot)),
		)
		return
	}

	state := s.engine.Reconcile(products, snapshot)
	s.logger.Debug("cart reconciled with trolley feed",
		slog.Int("total_items", state.TotalItems),
		slog.Float64("total_price", state.TotalPrice),
	)
}

// loadCatalog fetches the current catalog. A failure is logged and reported
// as an empty catalog.
func (s *CartSession) loadCatalog(ctx context.Context) []domain.Product {
	products, err := s.catalog.ListProducts(ctx, nil)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load catalog",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return products
}

func (s *CartSession) publishUpdated(ctx context.Context, op, productID string, state domain.CartState) {
	if err := s.events.PublishCartUpdated(ctx, op, productID, state); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("operation", op),
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
}
