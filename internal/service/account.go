package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	"github.com/VishalVrk/rfid-cart/internal/repository"
	apperrors "github.com/VishalVrk/rfid-cart/pkg/errors"
)

// AccountService manages the UPI accounts customers pay into.
type AccountService struct {
	repo   repository.PaymentAccountRepository
	logger *slog.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(repo repository.PaymentAccountRepository, logger *slog.Logger) *AccountService {
	return &AccountService{repo: repo, logger: logger}
}

// AccountInput holds the parameters for creating or replacing an account.
type AccountInput struct {
	Name      string
	UPIID     string
	IsDefault bool
}

func (s *AccountService) ListAccounts(ctx context.Context) ([]domain.PaymentAccount, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payment accounts: %w", err)
	}
	return accounts, nil
}

func (s *AccountService) GetDefaultAccount(ctx context.Context) (*domain.PaymentAccount, error) {
	account, err := s.repo.GetDefault(ctx)
	if err != nil {
		return nil, fmt.Errorf("get default payment account: %w", err)
	}
	return account, nil
}

// CreateAccount stores a new account. Marking it default replaces the
// previous default.
func (s *AccountService) CreateAccount(ctx context.Context, input *AccountInput) (*domain.PaymentAccount, error) {
	account := &domain.PaymentAccount{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(input.Name),
		UPIID:     strings.TrimSpace(input.UPIID),
		IsDefault: input.IsDefault,
	}
	if err := validateAccount(account); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create payment account: %w", err)
	}

	s.logger.InfoContext(ctx, "payment account created",
		slog.String("account_id", account.ID),
		slog.Bool("is_default", account.IsDefault),
	)
	return account, nil
}

// UpdateAccount replaces an account's fields.
func (s *AccountService) UpdateAccount(ctx context.Context, id string, input *AccountInput) (*domain.PaymentAccount, error) {
	account := &domain.PaymentAccount{
		ID:        id,
		Name:      strings.TrimSpace(input.Name),
		UPIID:     strings.TrimSpace(input.UPIID),
		IsDefault: input.IsDefault,
	}
	if err := validateAccount(account); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("update payment account: %w", err)
	}

	s.logger.InfoContext(ctx, "payment account updated", slog.String("account_id", id))
	return account, nil
}

// DeleteAccount removes an account. Deleting the default promotes another one.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete payment account: %w", err)
	}

	s.logger.InfoContext(ctx, "payment account deleted", slog.String("account_id", id))
	return nil
}

func validateAccount(a *domain.PaymentAccount) error {
	if a.Name == "" {
		return apperrors.InvalidInput("account name is required")
	}
	if !strings.Contains(a.UPIID, "@") {
		return apperrors.InvalidInput("upi id must look like name@bank")
	}
	return nil
}
