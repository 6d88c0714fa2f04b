package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

type shippingRepository struct {
	store *Store
}

// NewShippingRepository создаёт PostgreSQL-реализацию ShippingRepository.
func NewShippingRepository(store *Store) domain.ShippingRepository {
	return &shippingRepository{store: store}
}

func (r *shippingRepository) Create(ctx context.Context, shipping domain.Shipping) error {
	_, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO shipments (
			id, order_id, courier, tracking_number, carrier_order_id, status,
			estimated_delivery, shipped_at, delivered_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		shipping.ID, shipping.OrderID, shipping.Courier,
		shipping.TrackingNumber, shipping.CarrierOrderID, string(shipping.Status),
		nullTime(shipping.EstimatedDelivery), nullTime(shipping.ShippedAt),
		nullTime(shipping.DeliveredAt), shipping.CreatedAt, shipping.UpdatedAt,
	)
	if err != nil {
		// UNIQUE(order_id): отправление на заказ не более одного.
		if isUniqueViolation(err) {
			return domain.ErrShippingExists
		}
		return fmt.Errorf("insert shipping: %w", err)
	}
	return nil
}

func (r *shippingRepository) GetByOrder(ctx context.Context, orderID string) (domain.Shipping, error) {
	var (
		shipping          domain.Shipping
		status            string
		estimatedDelivery sql.NullTime
		shippedAt         sql.NullTime
		deliveredAt       sql.NullTime
	)
	err := r.store.q(ctx).QueryRowContext(ctx, `
		SELECT id, order_id, courier, tracking_number, carrier_order_id, status,
		       estimated_delivery, shipped_at, delivered_at, created_at, updated_at
		FROM shipments
		WHERE order_id = $1
	`, orderID).Scan(
		&shipping.ID, &shipping.OrderID, &shipping.Courier,
		&shipping.TrackingNumber, &shipping.CarrierOrderID, &status,
		&estimatedDelivery, &shippedAt, &deliveredAt,
		&shipping.CreatedAt, &shipping.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Shipping{}, domain.ErrShippingNotFound
		}
		return domain.Shipping{}, fmt.Errorf("select shipping: %w", err)
	}
	shipping.Status = domain.ShippingStatus(status)
	if estimatedDelivery.Valid {
		shipping.EstimatedDelivery = estimatedDelivery.Time
	}
	if shippedAt.Valid {
		shipping.ShippedAt = shippedAt.Time
	}
	if deliveredAt.Valid {
		shipping.DeliveredAt = deliveredAt.Time
	}
	return shipping, nil
}

func (r *shippingRepository) Save(ctx context.Context, shipping domain.Shipping) error {
	res, err := r.store.q(ctx).ExecContext(ctx, `
		UPDATE shipments
		SET tracking_number = $1,
		    carrier_order_id = $2,
		    status = $3,
		    estimated_delivery = $4,
		    shipped_at = $5,
		    delivered_at = $6,
		    updated_at = $7
		WHERE id = $8
	`,
		shipping.TrackingNumber, shipping.CarrierOrderID, string(shipping.Status),
		nullTime(shipping.EstimatedDelivery), nullTime(shipping.ShippedAt),
		nullTime(shipping.DeliveredAt), shipping.UpdatedAt, shipping.ID,
	)
	if err != nil {
		return fmt.Errorf("update shipping: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrShippingNotFound
	}
	return nil
}

var _ domain.ShippingRepository = (*shippingRepository)(nil)
