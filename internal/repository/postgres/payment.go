package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	"github.com/VishalVrk/rfid-cart/internal/repository"
	"github.com/VishalVrk/rfid-cart/pkg/database"
	apperrors "github.com/VishalVrk/rfid-cart/pkg/errors"
)

const (
	paymentColumns = `id, amount, currency, status, items, upi_id, notes, created_at, updated_at`

	defaultPaymentPageSize = 20
)

// PaymentRepository implements repository.PaymentRepository using PostgreSQL.
type PaymentRepository struct {
	db database.DBTX
}

var _ repository.PaymentRepository = (*PaymentRepository)(nil)

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(db database.DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a new payment into the database.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) (err error) {
	itemsJSON, err := json.Marshal(p.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	query := `
		INSERT INTO payments (id, amount, currency, status, items, upi_id, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	ctx, end := database.TraceQuery(ctx, "CreatePayment", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		p.ID,
		p.Amount,
		p.Currency,
		p.Status,
		itemsJSON,
		p.UPIID,
		p.Notes,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

// GetByID retrieves a payment by its ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (_ *domain.Payment, err error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetPayment", query)
	defer func() { end(err) }()

	p, err := scanPayment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("payment", id)
		}
		return nil, err
	}
	return p, nil
}

// List returns payments matching the filter, newest first, with the total count.
func (r *PaymentRepository) List(ctx context.Context, filter repository.PaymentFilter) (_ []domain.Payment, _ int, err error) {
	var (
		conditions []string
		args       []any
	)

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.PerPage
	if limit <= 0 {
		limit = defaultPaymentPageSize
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT %s,
		       count(*) OVER() AS total_count
		FROM payments
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		paymentColumns, whereClause, len(args)-1, len(args),
	)

	ctx, end := database.TraceQuery(ctx, "ListPayments", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var (
		payments   = []domain.Payment{}
		totalCount int
	)

	for rows.Next() {
		var (
			p         domain.Payment
			itemsJSON []byte
		)
		if err := rows.Scan(
			&p.ID,
			&p.Amount,
			&p.Currency,
			&p.Status,
			&itemsJSON,
			&p.UPIID,
			&p.Notes,
			&p.CreatedAt,
			&p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan payment row: %w", err)
		}
		if err := decodeItems(itemsJSON, &p); err != nil {
			return nil, 0, err
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate payment rows: %w", err)
	}

	return payments, totalCount, nil
}

// UpdateStatus sets the status and notes of a payment and returns the stored row.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id, status, notes string) (_ *domain.Payment, err error) {
	query := `
		UPDATE payments
		SET status = $1, notes = $2, updated_at = $3
		WHERE id = $4
		RETURNING ` + paymentColumns

	ctx, end := database.TraceQuery(ctx, "UpdatePaymentStatus", query)
	defer func() { end(err) }()

	p, err := scanPayment(r.db.QueryRow(ctx, query, status, notes, time.Now().UTC(), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("payment", id)
		}
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	return p, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p         domain.Payment
		itemsJSON []byte
	)

	err := row.Scan(
		&p.ID,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&itemsJSON,
		&p.UPIID,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	if err := decodeItems(itemsJSON, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func decodeItems(data []byte, p *domain.Payment) error {
	p.Items = []domain.PaymentItem{}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &p.Items); err != nil {
		return fmt.Errorf("unmarshal items: %w", err)
	}
	if p.Items == nil {
		p.Items = []domain.PaymentItem{}
	}
	return nil
}
