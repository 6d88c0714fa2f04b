package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

type auditLogRepository struct {
	store *Store
}

// NewAuditLogRepository создаёт PostgreSQL-реализацию AuditLogRepository.
// Таблица append-only: записи не обновляются и не удаляются.
func NewAuditLogRepository(store *Store) domain.AuditLogRepository {
	return &auditLogRepository{store: store}
}

func (r *auditLogRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if _, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO audit_log (id, user_id, order_id, operation, outcome, message, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		entry.ID, entry.UserID, entry.OrderID, entry.Operation,
		string(entry.Outcome), entry.Message, entry.Occurred,
	); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *auditLogRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.AuditEntry, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx, `
		SELECT id, user_id, order_id, operation, outcome, message, occurred_at
		FROM audit_log
		WHERE order_id = $1
		ORDER BY occurred_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var (
			entry   domain.AuditEntry
			outcome string
		)
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.OrderID, &entry.Operation,
			&outcome, &entry.Message, &entry.Occurred,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Outcome = domain.AuditOutcome(outcome)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}

var _ domain.AuditLogRepository = (*auditLogRepository)(nil)
