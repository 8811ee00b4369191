package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	"github.com/VishalVrk/rfid-cart/internal/repository"
	"github.com/VishalVrk/rfid-cart/pkg/database"
	apperrors "github.com/VishalVrk/rfid-cart/pkg/errors"
)

const accountColumns = `id, name, upi_id, is_default`

// PaymentAccountRepository implements repository.PaymentAccountRepository
// using PostgreSQL.
type PaymentAccountRepository struct {
	db database.DBTX
}

var _ repository.PaymentAccountRepository = (*PaymentAccountRepository)(nil)

// NewPaymentAccountRepository creates a new PostgreSQL-backed account repository.
func NewPaymentAccountRepository(db database.DBTX) *PaymentAccountRepository {
	return &PaymentAccountRepository{db: db}
}

// List returns all accounts, the default first.
func (r *PaymentAccountRepository) List(ctx context.Context) (_ []domain.PaymentAccount, err error) {
	query := `SELECT ` + accountColumns + ` FROM payment_accounts ORDER BY is_default DESC, name`

	ctx, end := database.TraceQuery(ctx, "ListPaymentAccounts", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list payment accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.PaymentAccount{}
	for rows.Next() {
		var a domain.PaymentAccount
		if err := rows.Scan(&a.ID, &a.Name, &a.UPIID, &a.IsDefault); err != nil {
			return nil, fmt.Errorf("scan payment account row: %w", err)
		}
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment account rows: %w", err)
	}

	return accounts, nil
}

// GetByID retrieves an account by its ID.
func (r *PaymentAccountRepository) GetByID(ctx context.Context, id string) (_ *domain.PaymentAccount, err error) {
	query := `SELECT ` + accountColumns + ` FROM payment_accounts WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetPaymentAccount", query)
	defer func() { end(err) }()

	return r.scanAccount(ctx, query, id)
}

// GetDefault retrieves the default account.
func (r *PaymentAccountRepository) GetDefault(ctx context.Context) (_ *domain.PaymentAccount, err error) {
	query := `SELECT ` + accountColumns + ` FROM payment_accounts WHERE is_default LIMIT 1`

	ctx, end := database.TraceQuery(ctx, "GetDefaultPaymentAccount", query)
	defer func() { end(err) }()

	return r.scanAccount(ctx, query)
}

// Create inserts an account, unsetting the previous default in the same
// transaction when the new account is the default.
func (r *PaymentAccountRepository) Create(ctx context.Context, a *domain.PaymentAccount) (err error) {
	query := `INSERT INTO payment_accounts (id, name, upi_id, is_default) VALUES ($1, $2, $3, $4)`

	ctx, end := database.TraceQuery(ctx, "CreatePaymentAccount", query)
	defer func() { end(err) }()

	return r.inTx(ctx, func(tx pgx.Tx) error {
		if a.IsDefault {
			if _, err := tx.Exec(ctx,
				`UPDATE payment_accounts SET is_default = false WHERE is_default`,
			); err != nil {
				return fmt.Errorf("unset default payment account: %w", err)
			}
		}

		if _, err := tx.Exec(ctx, query, a.ID, a.Name, a.UPIID, a.IsDefault); err != nil {
			return fmt.Errorf("insert payment account: %w", err)
		}
		return nil
	})
}

// Update modifies an account, unsetting any other default in the same
// transaction when the account becomes the default.
func (r *PaymentAccountRepository) Update(ctx context.Context, a *domain.PaymentAccount) (err error) {
	query := `UPDATE payment_accounts SET name = $1, upi_id = $2, is_default = $3 WHERE id = $4`

	ctx, end := database.TraceQuery(ctx, "UpdatePaymentAccount", query)
	defer func() { end(err) }()

	return r.inTx(ctx, func(tx pgx.Tx) error {
		if a.IsDefault {
			if _, err := tx.Exec(ctx,
				`UPDATE payment_accounts SET is_default = false WHERE is_default AND id <> $1`,
				a.ID,
			); err != nil {
				return fmt.Errorf("unset default payment account: %w", err)
			}
		}

		ct, err := tx.Exec(ctx, query, a.Name, a.UPIID, a.IsDefault, a.ID)
		if err != nil {
			return fmt.Errorf("update payment account: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("payment account", a.ID)
		}
		return nil
	})
}

// Delete removes an account. When the default is deleted the oldest
// remaining account becomes the default.
func (r *PaymentAccountRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM payment_accounts WHERE id = $1 RETURNING is_default`

	ctx, end := database.TraceQuery(ctx, "DeletePaymentAccount", query)
	defer func() { end(err) }()

	return r.inTx(ctx, func(tx pgx.Tx) error {
		var wasDefault bool
		if err := tx.QueryRow(ctx, query, id).Scan(&wasDefault); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("payment account", id)
			}
			return fmt.Errorf("delete payment account: %w", err)
		}

		if !wasDefault {
			return nil
		}

		if _, err := tx.Exec(ctx, `
			UPDATE payment_accounts SET is_default = true
			WHERE id = (SELECT id FROM payment_accounts ORDER BY created_at, id LIMIT 1)`,
		); err != nil {
			return fmt.Errorf("promote default payment account: %w", err)
		}
		return nil
	})
}

func (r *PaymentAccountRepository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *PaymentAccountRepository) scanAccount(ctx context.Context, query string, args ...any) (*domain.PaymentAccount, error) {
	var a domain.PaymentAccount

	err := r.db.QueryRow(ctx, query, args...).Scan(&a.ID, &a.Name, &a.UPIID, &a.IsDefault)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment account: %w", err)
	}

	return &a, nil
}
