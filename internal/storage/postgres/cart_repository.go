package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

type cartRepository struct {
	store *Store
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{store: store}
}

func (r *cartRepository) ListByUser(ctx context.Context, userID string, ids []string) ([]domain.CartItem, error) {
	q := r.store.q(ctx)

	var (
		rows *sql.Rows
		err  error
	)
	if len(ids) > 0 {
		rows, err = q.QueryContext(ctx, `
			SELECT id, user_id, variant_id, qty, created_at
			FROM cart_items
			WHERE user_id = $1 AND id = ANY($2)
			ORDER BY id ASC
		`, userID, ids)
	} else {
		rows, err = q.QueryContext(ctx, `
			SELECT id, user_id, variant_id, qty, created_at
			FROM cart_items
			WHERE user_id = $1
			ORDER BY id ASC
		`, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.VariantID, &item.Qty, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return items, nil
}

func (r *cartRepository) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.store.q(ctx).ExecContext(ctx, `
		DELETE FROM cart_items WHERE id = ANY($1)
	`, ids); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	return nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
