package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	"github.com/VishalVrk/rfid-cart/internal/repository"
	apperrors "github.com/VishalVrk/rfid-cart/pkg/errors"
)

// CartReader exposes the current cart to checkout.
type CartReader interface {
	GetCart() domain.CartState
}

// PaymentEventPublisher publishes payment events.
type PaymentEventPublisher interface {
	PublishPaymentCreated(ctx context.Context, payment *domain.Payment) error
	PublishPaymentStatusChanged(ctx context.Context, payment *domain.Payment, previous string) error
}

// PaymentConfig holds the merchant details used to build payment links.
type PaymentConfig struct {
	MerchantName    string
	TransactionNote string
	// Fallback receives payments when no default account is configured.
	Fallback domain.PaymentAccount
}

// CheckoutResult is a raised payment together with the links to pay it.
type CheckoutResult struct {
	Payment *domain.Payment     `json:"payment"`
	Links   domain.PaymentLinks `json:"links"`
}

// PaymentService implements checkout and the admin payment workflow.
type PaymentService struct {
	payments repository.PaymentRepository
	accounts repository.PaymentAccountRepository
	cart     CartReader
	events   PaymentEventPublisher
	cfg      PaymentConfig
	logger   *slog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	payments repository.PaymentRepository,
	accounts repository.PaymentAccountRepository,
	cart CartReader,
	events PaymentEventPublisher,
	cfg PaymentConfig,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		accounts: accounts,
		cart:     cart,
		events:   events,
		cfg:      cfg,
		logger:   logger,
	}
}

// Checkout snapshots the current cart into a pending payment addressed to the
// default payment account.
func (s *PaymentService) Checkout(ctx context.Context) (*CheckoutResult, error) {
	cart := s.cart.GetCart()
	if len(cart.Items) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	account := s.receivingAccount(ctx)

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:        uuid.New().String(),
		Amount:    roundAmount(cart.TotalPrice),
		Currency:  domain.DefaultCurrency,
		Status:    domain.PaymentStatusPending,
		Items:     domain.PaymentItemsFromCart(cart),
		UPIID:     account.UPIID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := s.events.PublishPaymentCreated(ctx, payment); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.created event",
			slog.String("payment_id", payment.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment raised",
		slog.String("payment_id", payment.ID),
		slog.Float64("amount", payment.Amount),
		slog.String("upi_id", payment.UPIID),
	)

	return &CheckoutResult{
		Payment: payment,
		Links:   domain.NewPaymentLinks(account.UPIID, s.cfg.MerchantName, payment.Amount, s.cfg.TransactionNote),
	}, nil
}

// GetPayment retrieves a payment by its ID.
func (s *PaymentService) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment by id: %w", err)
	}
	return payment, nil
}

// ListPayments returns payments, optionally filtered by status, with the
// total count.
func (s *PaymentService) ListPayments(ctx context.Context, status *string, page, perPage int) ([]domain.Payment, int, error) {
	if status != nil && !domain.IsValidPaymentStatus(*status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("unknown payment status %q", *status))
	}

	payments, total, err := s.payments.List(ctx, repository.PaymentFilter{
		Status:  status,
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	return payments, total, nil
}

// UpdatePaymentStatus records an admin's decision on a payment. Any valid
// status may follow any other.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, id, status, notes string) (*domain.Payment, error) {
	if !domain.IsValidPaymentStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown payment status %q", status))
	}

	current, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment for status update: %w", err)
	}

	updated, err := s.payments.UpdateStatus(ctx, id, status, notes)
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}

	if err := s.events.PublishPaymentStatusChanged(ctx, updated, current.Status); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.status_changed event",
			slog.String("payment_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment status updated",
		slog.String("payment_id", id),
		slog.String("from", current.Status),
		slog.String("to", updated.Status),
	)

	return updated, nil
}

// receivingAccount returns the default account, falling back to the
// configured one when none is set or the lookup fails.
func (s *PaymentService) receivingAccount(ctx context.Context) domain.PaymentAccount {
	account, err := s.accounts.GetDefault(ctx)
	if err == nil {
		return *account
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.WarnContext(ctx, "failed to load default payment account, using fallback",
			slog.String("error", err.Error()),
		)
	}
	return s.cfg.Fallback
}

func roundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}
