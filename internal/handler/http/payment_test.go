package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	"github.com/VishalVrk/rfid-cart/internal/repository"
	"github.com/VishalVrk/rfid-cart/internal/service"
	apperrors "github.com/VishalVrk/rfid-cart/pkg/errors"
	"github.com/VishalVrk/rfid-cart/pkg/httputil"
)

// listResponse mirrors httputil.PaginatedResponse for test decoding.
type listResponse = httputil.PaginatedResponse[domain.Payment]

func samplePayment(status string) *domain.Payment {
	now := time.Now().UTC()
	return &domain.Payment{
		ID:       uuid.New().String(),
		Amount:   4.00,
		Currency: domain.DefaultCurrency,
		Status:   status,
		Items: []domain.PaymentItem{
			{ProductID: "p-apple", Name: "Apple", Price: 2.00, Quantity: 2},
		},
		UPIID:     "shop@okaxis",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/checkout", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cart is empty", decodeError(t, rec).Message)
	ts.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCheckout_UsesDefaultAccount(t *testing.T) {
	ts := newTestServer(t)
	ts.addApple(t)
	ts.accounts.On("GetDefault", mock.Anything).Return(&domain.PaymentAccount{
		ID: uuid.New().String(), Name: "Shop", UPIID: "shop@okaxis", IsDefault: true,
	}, nil)
	ts.payments.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.Status == domain.PaymentStatusPending && p.Amount == 2.00 && p.UPIID == "shop@okaxis" && len(p.Items) == 1
	})).Return(nil)
	ts.events.On("PublishPaymentCreated", mock.Anything, mock.Anything).Return(nil)

	rec := ts.do(t, http.MethodPost, "/api/v1/checkout", nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result service.CheckoutResult
	decodeData(t, rec, &result)
	require.NotNil(t, result.Payment)
	assert.Equal(t, domain.PaymentStatusPending, result.Payment.Status)
	assert.Contains(t, result.Links.UPI, "upi://pay?")
	assert.Contains(t, result.Links.UPI, "pa=shop%40okaxis")
	assert.Contains(t, result.Links.UPI, "am=2.00")
	assert.Contains(t, result.Links.GooglePay, "pn=Cartopia")
	ts.payments.AssertExpectations(t)
	ts.events.AssertExpectations(t)
}

func TestCheckout_FallsBackWithoutDefaultAccount(t *testing.T) {
	ts := newTestServer(t)
	ts.addApple(t)
	ts.accounts.On("GetDefault", mock.Anything).Return(nil, apperrors.ErrNotFound)
	ts.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	ts.events.On("PublishPaymentCreated", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	rec := ts.do(t, http.MethodPost, "/api/v1/checkout", nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result service.CheckoutResult
	decodeData(t, rec, &result)
	assert.Equal(t, "fallback@okhdfcbank", result.Payment.UPIID)
	assert.Contains(t, result.Links.UPI, "pa=fallback%40okhdfcbank")
}

func TestGetPayment_Success(t *testing.T) {
	ts := newTestServer(t)
	p := samplePayment(domain.PaymentStatusPending)
	ts.payments.On("GetByID", mock.Anything, p.ID).Return(p, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/payments/"+p.ID, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Payment
	decodeData(t, rec, &got)
	assert.Equal(t, p.ID, got.ID)
	assert.Len(t, got.Items, 1)
}

func TestGetPayment_InvalidID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/payments/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", decodeError(t, rec).Code)
}

func TestGetPayment_NotFound(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New().String()
	ts.payments.On("GetByID", mock.Anything, id).Return(nil, apperrors.NotFound("payment", id))

	rec := ts.do(t, http.MethodGet, "/api/v1/payments/"+id, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPayments_FilteredAndPaginated(t *testing.T) {
	ts := newTestServer(t)
	status := domain.PaymentStatusCompleted
	ts.payments.On("List", mock.Anything, repository.PaymentFilter{Status: &status, Page: 2, PerPage: 5}).
		Return([]domain.Payment{*samplePayment(status)}, 6, nil)

	rec := ts.admin(t, http.MethodGet, "/api/v1/admin/payments?status=completed&page=2&per_page=5", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Data, 1)
	assert.Equal(t, 6, page.TotalCount)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	assert.False(t, page.HasNext)
}

func TestListPayments_UnknownStatus(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.admin(t, http.MethodGet, "/api/v1/admin/payments?status=refunded", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPayments_RequiresToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/admin/payments", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdatePaymentStatus_Success(t *testing.T) {
	ts := newTestServer(t)
	current := samplePayment(domain.PaymentStatusPending)
	updated := *current
	updated.Status = domain.PaymentStatusCompleted
	updated.Notes = "verified in bank app"

	ts.payments.On("GetByID", mock.Anything, current.ID).Return(current, nil)
	ts.payments.On("UpdateStatus", mock.Anything, current.ID, domain.PaymentStatusCompleted, "verified in bank app").
		Return(&updated, nil)
	ts.events.On("PublishPaymentStatusChanged", mock.Anything, &updated, domain.PaymentStatusPending).Return(nil)

	rec := ts.admin(t, http.MethodPut, "/api/v1/admin/payments/"+current.ID+"/status", map[string]string{
		"status": "completed",
		"notes":  "verified in bank app",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got domain.Payment
	decodeData(t, rec, &got)
	assert.Equal(t, domain.PaymentStatusCompleted, got.Status)
	assert.Equal(t, "verified in bank app", got.Notes)
	ts.events.AssertExpectations(t)
}

func TestUpdatePaymentStatus_InvalidStatus(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.admin(t, http.MethodPut, "/api/v1/admin/payments/"+uuid.New().String()+"/status", map[string]string{
		"status": "refunded",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Fields, "status")
	ts.payments.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
