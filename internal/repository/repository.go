package repository

import (
	"context"

	"github.com/VishalVrk/rfid-cart/internal/domain"
)

// ProductFilter holds the criteria for listing products.
type ProductFilter struct {
	Category *string
}

// ProductRepository defines the interface for catalog persistence operations.
type ProductRepository interface {
	// List returns every product matching the filter, ordered by name.
	// An empty catalog is a valid result.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, error)

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// Create inserts a new product into the store.
	Create(ctx context.Context, product *domain.Product) error

	// Update modifies an existing product in the store.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product by its unique identifier.
	Delete(ctx context.Context, id string) error
}

// PaymentFilter holds the criteria for listing payments.
type PaymentFilter struct {
	Status  *string
	Page    int
	PerPage int
}

// PaymentRepository defines the interface for payment persistence operations.
type PaymentRepository interface {
	// Create inserts a new payment into the store.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// List returns payments matching the filter, newest first.
	// Returns the payment slice, the total count, and any error.
	List(ctx context.Context, filter PaymentFilter) ([]domain.Payment, int, error)

	// UpdateStatus sets a payment's status and notes and returns the updated record.
	UpdateStatus(ctx context.Context, id, status, notes string) (*domain.Payment, error)
}

// PaymentAccountRepository defines the interface for UPI account persistence.
type PaymentAccountRepository interface {
	List(ctx context.Context) ([]domain.PaymentAccount, error)
	GetByID(ctx context.Context, id string) (*domain.PaymentAccount, error)

	// GetDefault returns the default account, or ErrNotFound when none is set.
	GetDefault(ctx context.Context) (*domain.PaymentAccount, error)

	// Create inserts an account. A default account replaces the previous default.
	Create(ctx context.Context, account *domain.PaymentAccount) error

	// Update modifies an account. A default account replaces the previous default.
	Update(ctx context.Context, account *domain.PaymentAccount) error

	// Delete removes an account. Deleting the default promotes the oldest
	// remaining account.
	Delete(ctx context.Context, id string) error
}
