package domain

import "time"

// AuditOutcome — исход операции в журнале аудита.
type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "success"
	AuditOutcomeFailure AuditOutcome = "failure"
)

// AuditEntry — append-only запись журнала по каждой state-changing операции.
// Записи никогда не мутируются и не удаляются.
type AuditEntry struct {
	ID        string
	UserID    string
	OrderID   string
	Operation string
	Outcome   AuditOutcome
	Message   string
	Occurred  time.Time
}

// Role — роль вызывающей стороны, выданная внешним Auth-коллаборатором.
// Ядро доверяет тому, что личность уже проверена.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Actor — вызывающая сторона операции: (user_id, role) от Auth-коллаборатора.
type Actor struct {
	UserID string
	Role   Role
}

// IsAdmin сообщает, имеет ли актор административные права.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
