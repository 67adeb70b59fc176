package admin

import (
	"context"

	"gatehouse.org/internal/audit"
	"gatehouse.org/internal/identity"
)

// Store performs identity mutations atomically with the audit entry that
// describes them: "operation succeeded but was never logged" cannot occur.
type Store interface {
	identity.Reader
	List(ctx context.Context) ([]*identity.Identity, error)

	CreateUser(ctx context.Context, u *identity.Identity, e *audit.Entry) error
	UpdatePassword(ctx context.Context, id, passwordHash string, e *audit.Entry) error
	ChangeRole(ctx context.Context, id string, role identity.Role, e *audit.Entry) error
	SetStatus(ctx context.Context, id string, active bool, e *audit.Entry) error
	DeleteUser(ctx context.Context, id string, e *audit.Entry) error
}
