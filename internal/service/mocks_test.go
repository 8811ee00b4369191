package service

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	"github.com/VishalVrk/rfid-cart/internal/feed"
	"github.com/VishalVrk/rfid-cart/internal/repository"
)

// --- Repositories ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockPaymentRepository struct {
	mock.Mock
}

func (m *mockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *mockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *mockPaymentRepository) List(ctx context.Context, filter repository.PaymentFilter) ([]domain.Payment, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Payment), args.Int(1), args.Error(2)
}

func (m *mockPaymentRepository) UpdateStatus(ctx context.Context, id, status, notes string) (*domain.Payment, error) {
	args := m.Called(ctx, id, status, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) List(ctx context.Context) ([]domain.PaymentAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PaymentAccount), args.Error(1)
}

func (m *mockAccountRepository) GetByID(ctx context.Context, id string) (*domain.PaymentAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentAccount), args.Error(1)
}

func (m *mockAccountRepository) GetDefault(ctx context.Context) (*domain.PaymentAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentAccount), args.Error(1)
}

func (m *mockAccountRepository) Create(ctx context.Context, account *domain.PaymentAccount) error {
	return m.Called(ctx, account).Error(0)
}

func (m *mockAccountRepository) Update(ctx context.Context, account *domain.PaymentAccount) error {
	return m.Called(ctx, account).Error(0)
}

func (m *mockAccountRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// --- Events ---

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishCartUpdated(ctx context.Context, op, productID string, state domain.CartState) error {
	return m.Called(ctx, op, productID, state).Error(0)
}

func (m *mockEvents) PublishCartCleared(ctx context.Context, previous domain.CartState) error {
	return m.Called(ctx, previous).Error(0)
}

func (m *mockEvents) PublishPaymentCreated(ctx context.Context, payment *domain.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *mockEvents) PublishPaymentStatusChanged(ctx context.Context, payment *domain.Payment, previous string) error {
	return m.Called(ctx, payment, previous).Error(0)
}

// --- Feed and store fakes for a real engine ---

type fakeSource struct {
	mu           sync.Mutex
	cb           feed.Callback
	initial      domain.FeedSnapshot
	subscribeErr error
	unsubscribed int
}

func (f *fakeSource) Subscribe(_ context.Context, cb feed.Callback) (feed.Unsubscribe, error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()

	initial := f.initial
	if initial == nil {
		initial = domain.FeedSnapshot{}
	}
	cb(initial)

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubscribed++
	}, nil
}

func (f *fakeSource) Snapshot(context.Context) (domain.FeedSnapshot, error) {
	return f.initial, nil
}

func (f *fakeSource) push(snapshot domain.FeedSnapshot) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	cb(snapshot)
}

type nopMirror struct{}

func (nopMirror) SetQuantity(context.Context, string, int) error { return nil }
func (nopMirror) DeleteKey(context.Context, string) error { return nil }
func (nopMirror) ResetNamespace(context.Context) error { return nil }
func (nopMirror) SetTotalPrice(context.Context, float64) error { return nil }

type memStore struct {
	mu    sync.Mutex
	state domain.CartState
}

func (s *memStore) Load(context.Context) (domain.CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), nil
}

func (s *memStore) Save(_ context.Context, state domain.CartState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	return nil
}

type staticCart struct {
	state domain.CartState
}

func (c staticCart) GetCart() domain.CartState { return c.state }
