package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

// auditLogRepositoryInMemory — append-only журнал в памяти.
type auditLogRepositoryInMemory struct {
	store *Store
}

// NewAuditLogRepository возвращает in-memory журнал операций.
func NewAuditLogRepository(store *Store) domain.AuditLogRepository {
	return &auditLogRepositoryInMemory{store: store}
}

// Append добавляет запись в журнал; записи никогда не мутируются.
func (r *auditLogRepositoryInMemory) Append(ctx context.Context, entry domain.AuditEntry) error {
	defer r.store.enter(ctx)()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	r.store.data.audit = append(r.store.data.audit, entry)
	return nil
}

// ListByOrder возвращает записи журнала по заказу в порядке добавления.
func (r *auditLogRepositoryInMemory) ListByOrder(ctx context.Context, orderID string) ([]domain.AuditEntry, error) {
	defer r.store.enter(ctx)()

	result := make([]domain.AuditEntry, 0)
	for _, entry := range r.store.data.audit {
		if entry.OrderID == orderID {
			result = append(result, entry)
		}
	}
	return result, nil
}

var _ domain.AuditLogRepository = (*auditLogRepositoryInMemory)(nil)
