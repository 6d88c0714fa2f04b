package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

type paymentRepository struct {
	store *Store
}

// NewPaymentRepository создаёт PostgreSQL-реализацию PaymentRepository.
func NewPaymentRepository(store *Store) domain.PaymentRepository {
	return &paymentRepository{store: store}
}

const paymentColumns = `
	id, order_id, method, provider_ref, redirect_url, status,
	amount_minor, currency, paid_at, created_at, updated_at
`

func (r *paymentRepository) Create(ctx context.Context, payment domain.Payment) error {
	_, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		payment.ID, payment.OrderID, string(payment.Method),
		payment.ProviderRef, payment.RedirectURL, string(payment.Status),
		payment.AmountMinor, payment.Currency, nullTime(payment.PaidAt),
		payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		// Partial unique index: не более одной pending-попытки на заказ.
		if isUniqueViolation(err) {
			return domain.ErrDuplicateActivePayment
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (domain.Payment, error) {
	row := r.store.q(ctx).QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE id = $1
	`, id)
	return scanPayment(row)
}

func (r *paymentRepository) GetByProviderRef(ctx context.Context, providerRef string) (domain.Payment, error) {
	row := r.store.q(ctx).QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE provider_ref = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, providerRef)
	return scanPayment(row)
}

func (r *paymentRepository) LatestPending(ctx context.Context, orderID string) (domain.Payment, error) {
	row := r.store.q(ctx).QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE order_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1
	`, orderID)
	return scanPayment(row)
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE order_id = $1
		ORDER BY created_at DESC, id DESC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		payment, err := scanPaymentRows(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}

	return payments, nil
}

func (r *paymentRepository) Save(ctx context.Context, payment domain.Payment) error {
	res, err := r.store.q(ctx).ExecContext(ctx, `
		UPDATE payments
		SET provider_ref = $1,
		    redirect_url = $2,
		    status = $3,
		    paid_at = $4,
		    updated_at = $5
		WHERE id = $6
	`,
		payment.ProviderRef, payment.RedirectURL, string(payment.Status),
		nullTime(payment.PaidAt), payment.UpdatedAt, payment.ID,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row *sql.Row) (domain.Payment, error) {
	payment, err := scanPaymentFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("select payment: %w", err)
	}
	return payment, nil
}

func scanPaymentRows(rows *sql.Rows) (domain.Payment, error) {
	payment, err := scanPaymentFrom(rows)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("scan payment row: %w", err)
	}
	return payment, nil
}

func scanPaymentFrom(s rowScanner) (domain.Payment, error) {
	var (
		payment domain.Payment
		method  string
		status  string
		paidAt  sql.NullTime
	)
	if err := s.Scan(
		&payment.ID, &payment.OrderID, &method, &payment.ProviderRef,
		&payment.RedirectURL, &status, &payment.AmountMinor, &payment.Currency,
		&paidAt, &payment.CreatedAt, &payment.UpdatedAt,
	); err != nil {
		return domain.Payment{}, err
	}
	payment.Method = domain.PaymentMethod(method)
	payment.Status = domain.PaymentStatus(status)
	if paidAt.Valid {
		payment.PaidAt = paidAt.Time
	}
	return payment, nil
}

// nullTime переводит нулевое время в SQL NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
