package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	"github.com/VishalVrk/rfid-cart/internal/engine"
	"github.com/VishalVrk/rfid-cart/internal/feed"
	"github.com/VishalVrk/rfid-cart/internal/repository"
	"github.com/VishalVrk/rfid-cart/internal/service"
	"github.com/VishalVrk/rfid-cart/pkg/health"
	"github.com/VishalVrk/rfid-cart/pkg/httputil"
	"github.com/VishalVrk/rfid-cart/pkg/logger"
	"github.com/VishalVrk/rfid-cart/pkg/middleware"
)

const testAdminToken = "test-admin-token"

// --- Mock Repositories ---

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

// --- Mock Events ---

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

// --- Engine and feed fakes ---

type quietFeed struct{}

func (quietFeed) Subscribe(context.Context, feed.Callback) (feed.Unsubscribe, error) {
	return func() {}, nil
}

func (quietFeed) Snapshot(context.Context) (domain.FeedSnapshot, error) {
	return domain.FeedSnapshot{}, nil
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

// --- Test server ---

var (
	apple = domain.Product{ID: "p-apple", Name: "Apple", Price: 2.00, Category: "fruit"}
	mango = domain.Product{ID: "p-mango", Name: "Mango", Price: 1.50, Category: "fruit"}
)

type testServer struct {
	handler  http.Handler
	products *mockProductRepository
	payments *mockPaymentRepository
	accounts *mockAccountRepository
	events   *mockEvents
}

// newTestServer wires real services and a real cart engine over mocked
// repositories behind the production router.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		products: new(mockProductRepository),
		payments: new(mockPaymentRepository),
		accounts: new(mockAccountRepository),
		events:   new(mockEvents),
	}
	log := logger.Discard()

	eng := engine.Open(context.Background(), &memStore{}, nopMirror{}, log, engine.DefaultOptions())
	catalog := service.NewCatalogService(ts.products, log)
	session := service.NewCartSession(eng, quietFeed{}, catalog, ts.events, log)
	t.Cleanup(session.Stop)

	payments := service.NewPaymentService(ts.payments, ts.accounts, session, ts.events, service.PaymentConfig{
		MerchantName:    "Cartopia",
		TransactionNote: "Payment for Cartopia order",
		Fallback:        domain.PaymentAccount{Name: "Cartopia", UPIID: "fallback@okhdfcbank"},
	}, log)

	ts.handler = NewRouter(RouterConfig{
		Cart:       session,
		Catalog:    catalog,
		Payments:   payments,
		Accounts:   service.NewAccountService(ts.accounts, log),
		Health:     health.NewHandler(),
		AdminToken: testAdminToken,
		CORS:       middleware.DefaultCORSConfig(),
	}, log)

	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return ts.doWithToken(t, method, path, body, "")
}

func (ts *testServer) admin(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return ts.doWithToken(t, method, path, body, testAdminToken)
}

func (ts *testServer) doWithToken(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// envelope mirrors httputil.Response with the data left undecoded.
type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Data, "response has no data: %s", rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *httputil.ErrorResponse {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error, "response has no error: %s", rec.Body.String())
	return env.Error
}
