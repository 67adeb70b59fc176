package admin

import (
	"context"
	"time"

	"gatehouse.org/internal/audit"
	"gatehouse.org/internal/identity"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore implements Store over the in-process identity and audit
// stores. Used by tests and local development.
type MemoryStore struct {
	ids *identity.Memory
	rec *audit.Memory
}

func NewMemoryStore(ids *identity.Memory, rec *audit.Memory) *MemoryStore {
	return &MemoryStore{ids: ids, rec: rec}
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*identity.Identity, error) {
	return s.ids.FindByID(ctx, id)
}

func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*identity.Identity, error) {
	return s.ids.FindByUsername(ctx, username)
}

func (s *MemoryStore) List(ctx context.Context) ([]*identity.Identity, error) {
	return s.ids.List(ctx)
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *identity.Identity, e *audit.Entry) error {
	if err := s.ids.Create(ctx, u); err != nil {
		return err
	}
	return s.rec.Append(ctx, e)
}

func (s *MemoryStore) UpdatePassword(ctx context.Context, id, passwordHash string, e *audit.Entry) error {
	return s.mutate(ctx, id, e, func(u *identity.Identity) {
		u.PasswordHash = passwordHash
	})
}

func (s *MemoryStore) ChangeRole(ctx context.Context, id string, role identity.Role, e *audit.Entry) error {
	return s.mutate(ctx, id, e, func(u *identity.Identity) {
		u.Role = role
	})
}

func (s *MemoryStore) SetStatus(ctx context.Context, id string, active bool, e *audit.Entry) error {
	return s.mutate(ctx, id, e, func(u *identity.Identity) {
		u.Active = active
	})
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id string, e *audit.Entry) error {
	if _, err := s.ids.FindByID(ctx, id); err != nil {
		return err
	}
	s.ids.Delete(id)
	return s.rec.Append(ctx, e)
}

func (s *MemoryStore) mutate(ctx context.Context, id string, e *audit.Entry, fn func(u *identity.Identity)) error {
	u, err := s.ids.FindByID(ctx, id)
	if err != nil {
		return err
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	s.ids.Put(u)
	return s.rec.Append(ctx, e)
}
