package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

type addressRepository struct {
	store *Store
}

// NewAddressRepository создаёт PostgreSQL-реализацию AddressRepository.
func NewAddressRepository(store *Store) domain.AddressRepository {
	return &addressRepository{store: store}
}

func (r *addressRepository) Get(ctx context.Context, id string) (domain.Address, error) {
	var address domain.Address
	err := r.store.q(ctx).QueryRowContext(ctx, `
		SELECT id, user_id, recipient, phone, line, city, province, postal_code, created_at
		FROM addresses
		WHERE id = $1
	`, id).Scan(
		&address.ID, &address.UserID, &address.Recipient, &address.Phone,
		&address.Line, &address.City, &address.Province, &address.PostalCode,
		&address.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Address{}, domain.ErrAddressNotFound
		}
		return domain.Address{}, fmt.Errorf("select address: %w", err)
	}
	return address, nil
}

var _ domain.AddressRepository = (*addressRepository)(nil)

type originRepository struct {
	store *Store
}

// NewOriginRepository создаёт PostgreSQL-реализацию OriginRepository.
func NewOriginRepository(store *Store) domain.OriginRepository {
	return &originRepository{store: store}
}

func (r *originRepository) Active(ctx context.Context) (domain.Origin, error) {
	var origin domain.Origin
	err := r.store.q(ctx).QueryRowContext(ctx, `
		SELECT id, name, contact, phone, line, city, postal_code, active, created_at
		FROM origins
		WHERE active
		LIMIT 1
	`).Scan(
		&origin.ID, &origin.Name, &origin.Contact, &origin.Phone,
		&origin.Line, &origin.City, &origin.PostalCode, &origin.Active,
		&origin.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Origin{}, domain.ErrNoActiveOrigin
		}
		return domain.Origin{}, fmt.Errorf("select active origin: %w", err)
	}
	return origin, nil
}

var _ domain.OriginRepository = (*originRepository)(nil)
