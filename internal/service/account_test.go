package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	apperrors "github.com/VishalVrk/rfid-cart/pkg/errors"
	"github.com/VishalVrk/rfid-cart/pkg/logger"
)

func TestAccountService_CreateAccount(t *testing.T) {
	repo := new(mockAccountRepository)
	svc := NewAccountService(repo, logger.Discard())

	repo.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.PaymentAccount) bool {
		return a.ID != "" && a.UPIID == "store@okaxis" && a.IsDefault
	})).Return(nil)

	acc, err := svc.CreateAccount(context.Background(), &AccountInput{
		Name: "Main counter", UPIID: " store@okaxis ", IsDefault: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Main counter", acc.Name)
	repo.AssertExpectations(t)
}

func TestAccountService_CreateAccount_Invalid(t *testing.T) {
	repo := new(mockAccountRepository)
	svc := NewAccountService(repo, logger.Discard())

	_, err := svc.CreateAccount(context.Background(), &AccountInput{Name: "x", UPIID: "not-an-upi"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.CreateAccount(context.Background(), &AccountInput{UPIID: "a@b"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAccountService_UpdateAccount_NotFound(t *testing.T) {
	repo := new(mockAccountRepository)
	svc := NewAccountService(repo, logger.Discard())

	repo.On("Update", mock.Anything, mock.Anything).Return(apperrors.NotFound("payment account", "acc-9"))

	_, err := svc.UpdateAccount(context.Background(), "acc-9", &AccountInput{Name: "x", UPIID: "x@upi"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAccountService_ListAndDefault(t *testing.T) {
	repo := new(mockAccountRepository)
	svc := NewAccountService(repo, logger.Discard())

	def := domain.PaymentAccount{ID: "acc-1", Name: "Main", UPIID: "store@upi", IsDefault: true}
	repo.On("List", mock.Anything).Return([]domain.PaymentAccount{def}, nil)
	repo.On("GetDefault", mock.Anything).Return(&def, nil)

	accounts, err := svc.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	got, err := svc.GetDefaultAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got.ID)
}

func TestAccountService_DeleteAccount(t *testing.T) {
	repo := new(mockAccountRepository)
	svc := NewAccountService(repo, logger.Discard())

	repo.On("Delete", mock.Anything, "acc-1").Return(nil)

	require.NoError(t, svc.DeleteAccount(context.Background(), "acc-1"))
	repo.AssertExpectations(t)
}
