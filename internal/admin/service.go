// Package admin implements privileged user management on top of the auth
// core. Every operation follows one recipe: authorization gate, then the
// self-modification safety check, then the mutation committed together with
// its audit entry. Rejections are audited synchronously before the error
// returns.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gatehouse.org/internal/audit"
	"gatehouse.org/internal/auth"
	"gatehouse.org/internal/identity"
	"gatehouse.org/internal/ids"
)

const minSecretLength = 6

// Service carries out administrative operations on identities.
type Service struct {
	store    Store
	recorder audit.Recorder
	creds    *auth.CredentialStore
}

func NewService(store Store, recorder audit.Recorder, creds *auth.CredentialStore) (*Service, error) {
	if store == nil || recorder == nil || creds == nil {
		return nil, errors.New("store, recorder and credentials are required")
	}
	return &Service{store: store, recorder: recorder, creds: creds}, nil
}

// CreateUser provisions a new account. Admin only.
func (s *Service) CreateUser(ctx context.Context, actor *identity.Identity, username, secret string, role identity.Role, origin audit.Origin) (*identity.Identity, error) {
	entry := audit.NewEntry(actorID(actor), audit.ActionCreateUser, "", origin)

	if err := auth.CheckAccess(actor, identity.RoleAdmin); err != nil {
		return nil, s.reject(ctx, entry, err)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, s.reject(ctx, entry, fmt.Errorf("%w: username is required", identity.ErrInvalidInput))
	}
	if len(secret) < minSecretLength {
		return nil, s.reject(ctx, entry, fmt.Errorf("%w: secret must be at least %d characters", identity.ErrInvalidInput, minSecretLength))
	}
	if role != identity.RoleAdmin && role != identity.RoleUser {
		return nil, s.reject(ctx, entry, fmt.Errorf("%w: unsupported role %q", identity.ErrInvalidInput, role))
	}

	hash, err := s.creds.Hash(secret)
	if err != nil {
		return nil, s.reject(ctx, entry, err)
	}
	u := &identity.Identity{
		ID:           ids.New(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	entry.TargetID = u.ID
	if err := s.store.CreateUser(ctx, u, entry.Succeeded()); err != nil {
		return nil, s.reject(ctx, entry, err)
	}
	audit.Emit(entry)
	return u, nil
}

// UpdatePassword rotates a target's secret. A profile-level edit: it does
// not touch role, status or existence, so acting on oneself is allowed.
func (s *Service) UpdatePassword(ctx context.Context, actor *identity.Identity, targetID, secret string, origin audit.Origin) error {
	entry := audit.NewEntry(actorID(actor), audit.ActionUpdateUser, targetID, origin)

	if err := auth.CheckAccess(actor, identity.RoleAdmin); err != nil {
		return s.reject(ctx, entry, err)
	}
	if len(secret) < minSecretLength {
		return s.reject(ctx, entry, fmt.Errorf("%w: secret must be at least %d characters", identity.ErrInvalidInput, minSecretLength))
	}
	hash, err := s.creds.Hash(secret)
	if err != nil {
		return s.reject(ctx, entry, err)
	}
	if err := s.store.UpdatePassword(ctx, targetID, hash, entry.Succeeded()); err != nil {
		return s.reject(ctx, entry, err)
	}
	audit.Emit(entry)
	return nil
}

// ChangeRole moves a target between the two roles. Admin only; never on
// oneself.
func (s *Service) ChangeRole(ctx context.Context, actor *identity.Identity, targetID string, role identity.Role, origin audit.Origin) error {
	entry := audit.NewEntry(actorID(actor), audit.ActionChangeRole, targetID, origin)

	if err := auth.CheckAccess(actor, identity.RoleAdmin); err != nil {
		return s.reject(ctx, entry, err)
	}
	if err := auth.ForbidSelfTarget(actorID(actor), targetID, audit.ActionChangeRole); err != nil {
		return s.reject(ctx, entry, err)
	}
	if role != identity.RoleAdmin && role != identity.RoleUser {
		return s.reject(ctx, entry, fmt.Errorf("%w: unsupported role %q", identity.ErrInvalidInput, role))
	}
	if err := s.store.ChangeRole(ctx, targetID, role, entry.Succeeded()); err != nil {
		return s.reject(ctx, entry, err)
	}
	audit.Emit(entry)
	return nil
}

// SetStatus raises or lowers a target's active flag. Admin only; never on
// oneself.
func (s *Service) SetStatus(ctx context.Context, actor *identity.Identity, targetID string, active bool, origin audit.Origin) error {
	entry := audit.NewEntry(actorID(actor), audit.ActionSetStatus, targetID, origin)

	if err := auth.CheckAccess(actor, identity.RoleAdmin); err != nil {
		return s.reject(ctx, entry, err)
	}
	if err := auth.ForbidSelfTarget(actorID(actor), targetID, audit.ActionSetStatus); err != nil {
		return s.reject(ctx, entry, err)
	}
	if err := s.store.SetStatus(ctx, targetID, active, entry.Succeeded()); err != nil {
		return s.reject(ctx, entry, err)
	}
	audit.Emit(entry)
	return nil
}

// DeleteUser removes a target account. Admin only; never on oneself.
func (s *Service) DeleteUser(ctx context.Context, actor *identity.Identity, targetID string, origin audit.Origin) error {
	entry := audit.NewEntry(actorID(actor), audit.ActionDeleteUser, targetID, origin)

	if err := auth.CheckAccess(actor, identity.RoleAdmin); err != nil {
		return s.reject(ctx, entry, err)
	}
	if err := auth.ForbidSelfTarget(actorID(actor), targetID, audit.ActionDeleteUser); err != nil {
		return s.reject(ctx, entry, err)
	}
	if err := s.store.DeleteUser(ctx, targetID, entry.Succeeded()); err != nil {
		return s.reject(ctx, entry, err)
	}
	audit.Emit(entry)
	return nil
}

// GetUser reads one identity. Admin only. Reads are not audited.
func (s *Service) GetUser(ctx context.Context, actor *identity.Identity, targetID string) (*identity.Identity, error) {
	if err := auth.CheckAccess(actor, identity.RoleAdmin); err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, targetID)
}

// ListUsers reads all identities. Admin only.
func (s *Service) ListUsers(ctx context.Context, actor *identity.Identity) ([]*identity.Identity, error) {
	if err := auth.CheckAccess(actor, identity.RoleAdmin); err != nil {
		return nil, err
	}
	return s.store.List(ctx)
}

// QueryAudit retrieves audit entries. Admin only, and itself audited.
func (s *Service) QueryAudit(ctx context.Context, actor *identity.Identity, f audit.Filters, origin audit.Origin) ([]*audit.Entry, error) {
	entry := audit.NewEntry(actorID(actor), audit.ActionViewAudit, "", origin)

	if err := auth.CheckAccess(actor, identity.RoleAdmin); err != nil {
		return nil, s.reject(ctx, entry, err)
	}
	res, err := s.recorder.Query(ctx, f)
	if err != nil {
		return nil, s.reject(ctx, entry, err)
	}
	if err := s.recorder.Append(ctx, entry.Succeeded()); err != nil {
		return nil, err
	}
	audit.Emit(entry)
	return res, nil
}

// reject audits a failed attempt before surfacing the error. No state was
// mutated, so a plain append outside any transaction is enough.
func (s *Service) reject(ctx context.Context, e *audit.Entry, cause error) error {
	e.Failed(auth.ReasonFor(cause))
	if err := s.recorder.Append(ctx, e); err != nil {
		return errors.Join(cause, err)
	}
	audit.Emit(e)
	return cause
}

func actorID(actor *identity.Identity) string {
	if actor == nil {
		return ""
	}
	return actor.ID
}
