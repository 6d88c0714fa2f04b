package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

type inventoryLedger struct {
	store *Store
}

// NewInventoryLedger создаёт PostgreSQL-реализацию InventoryLedger.
func NewInventoryLedger(store *Store) domain.InventoryLedger {
	return &inventoryLedger{store: store}
}

// Reserve выполняет атомарное условное списание одним UPDATE.
// Проверка остатка и декремент — одно действие на стороне БД,
// поэтому stock никогда не уходит ниже нуля при любой гонке.
func (r *inventoryLedger) Reserve(ctx context.Context, variantID string, qty int32) error {
	res, err := r.store.q(ctx).ExecContext(ctx, `
		UPDATE product_variants
		SET stock = stock - $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND stock >= $2
	`, variantID, qty)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.variantExists(ctx, variantID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrVariantNotFound
		}
		return domain.ErrInsufficientStock
	}
	return nil
}

// Release безусловно возвращает qty единиц на остаток.
func (r *inventoryLedger) Release(ctx context.Context, variantID string, qty int32) error {
	res, err := r.store.q(ctx).ExecContext(ctx, `
		UPDATE product_variants
		SET stock = stock + $2,
		    updated_at = NOW()
		WHERE id = $1
	`, variantID, qty)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrVariantNotFound
	}
	return nil
}

func (r *inventoryLedger) GetVariant(ctx context.Context, id string) (domain.ProductVariant, error) {
	var variant domain.ProductVariant
	err := r.store.q(ctx).QueryRowContext(ctx, `
		SELECT id, product_id, sku, name, price_minor, base_price_minor,
		       currency, stock, weight_grams, product_deleted, created_at, updated_at
		FROM product_variants
		WHERE id = $1
	`, id).Scan(
		&variant.ID, &variant.ProductID, &variant.SKU, &variant.Name,
		&variant.PriceMinor, &variant.BasePriceMinor, &variant.Currency,
		&variant.Stock, &variant.WeightGrams, &variant.ProductDeleted,
		&variant.CreatedAt, &variant.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProductVariant{}, domain.ErrVariantNotFound
		}
		return domain.ProductVariant{}, fmt.Errorf("select variant: %w", err)
	}
	return variant, nil
}

func (r *inventoryLedger) variantExists(ctx context.Context, id string) (bool, error) {
	var got string
	err := r.store.q(ctx).QueryRowContext(ctx, `SELECT id FROM product_variants WHERE id = $1`, id).Scan(&got)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check variant exists: %w", err)
}

var _ domain.InventoryLedger = (*inventoryLedger)(nil)
