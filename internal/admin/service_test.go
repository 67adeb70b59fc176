package admin

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"gatehouse.org/internal/audit"
	"gatehouse.org/internal/auth"
	"gatehouse.org/internal/identity"
)

type adminFixture struct {
	svc      *Service
	ids      *identity.Memory
	recorder *audit.Memory
	root     *identity.Identity
	alice    *identity.Identity
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	ids := identity.NewMemory()
	recorder := audit.NewMemory()
	store := NewMemoryStore(ids, recorder)

	creds, err := auth.NewCredentialStore(ids, auth.WithBcryptCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("NewCredentialStore: %v", err)
	}
	svc, err := NewService(store, recorder, creds)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	f := &adminFixture{svc: svc, ids: ids, recorder: recorder}
	f.root = f.seed(t, "root", identity.RoleAdmin, true)
	f.alice = f.seed(t, "alice", identity.RoleUser, true)
	return f
}

func (f *adminFixture) seed(t *testing.T, username string, role identity.Role, active bool) *identity.Identity {
	t.Helper()
	u := &identity.Identity{Username: username, PasswordHash: "x", Role: role, Active: active}
	if err := f.ids.Create(context.Background(), u); err != nil {
		t.Fatalf("seed %s: %v", username, err)
	}
	return u
}

func (f *adminFixture) lastEntry(t *testing.T) *audit.Entry {
	t.Helper()
	entries, err := f.recorder.Query(context.Background(), audit.Filters{Limit: 1})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one audit entry")
	}
	return entries[0]
}

func TestCreateUser(t *testing.T) {
	f := newAdminFixture(t)
	origin := audit.Origin{IP: "203.0.113.7"}

	u, err := f.svc.CreateUser(context.Background(), f.root, "bob", "s3cret!", identity.RoleUser, origin)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || !u.Active || u.Role != identity.RoleUser {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.PasswordHash == "s3cret!" {
		t.Fatal("secret stored unhashed")
	}

	e := f.lastEntry(t)
	if e.Action != audit.ActionCreateUser || e.Outcome != audit.OutcomeSuccess || e.TargetID != u.ID {
		t.Fatalf("unexpected entry: %+v", e)
	}

	// Duplicates are rejected and audited.
	if _, err := f.svc.CreateUser(context.Background(), f.root, "bob", "s3cret!", identity.RoleUser, origin); !errors.Is(err, identity.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if e := f.lastEntry(t); e.Outcome != audit.OutcomeFailure {
		t.Fatalf("duplicate create not audited as failure: %+v", e)
	}
}

func TestCreateUserValidation(t *testing.T) {
	f := newAdminFixture(t)
	origin := audit.Origin{}

	if _, err := f.svc.CreateUser(context.Background(), f.root, "  ", "s3cret!", identity.RoleUser, origin); !errors.Is(err, identity.ErrInvalidInput) {
		t.Fatalf("blank username: expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.svc.CreateUser(context.Background(), f.root, "bob", "short", identity.RoleUser, origin); !errors.Is(err, identity.ErrInvalidInput) {
		t.Fatalf("short secret: expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.svc.CreateUser(context.Background(), f.root, "bob", "s3cret!", identity.Role("owner"), origin); !errors.Is(err, identity.ErrInvalidInput) {
		t.Fatalf("bad role: expected ErrInvalidInput, got %v", err)
	}
}

func TestNonAdminRejected(t *testing.T) {
	f := newAdminFixture(t)
	origin := audit.Origin{}

	if _, err := f.svc.CreateUser(context.Background(), f.alice, "bob", "s3cret!", identity.RoleUser, origin); !errors.Is(err, auth.ErrInsufficientRole) {
		t.Fatalf("expected ErrInsufficientRole, got %v", err)
	}
	if e := f.lastEntry(t); e.Reason != "insufficient role" {
		t.Fatalf("unexpected reason: %q", e.Reason)
	}

	// An inactive admin fails the status gate first.
	lockedAdmin := f.seed(t, "emeritus", identity.RoleAdmin, false)
	if err := f.svc.DeleteUser(context.Background(), lockedAdmin, f.alice.ID, origin); !errors.Is(err, auth.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
	if _, err := f.ids.FindByID(context.Background(), f.alice.ID); err != nil {
		t.Fatalf("target must be untouched: %v", err)
	}
}

func TestSelfDeactivationBlocked(t *testing.T) {
	f := newAdminFixture(t)
	origin := audit.Origin{IP: "203.0.113.7"}
	before := f.recorder.Len()

	err := f.svc.SetStatus(context.Background(), f.root, f.root.ID, false, origin)
	if !errors.Is(err, auth.ErrSelfModification) {
		t.Fatalf("expected ErrSelfModification, got %v", err)
	}

	// No mutation happened.
	got, ferr := f.ids.FindByID(context.Background(), f.root.ID)
	if ferr != nil {
		t.Fatalf("FindByID: %v", ferr)
	}
	if !got.Active {
		t.Fatal("actor must remain active")
	}

	// Exactly one failure entry with the policy reason.
	if f.recorder.Len() != before+1 {
		t.Fatalf("expected one new audit entry, got %d", f.recorder.Len()-before)
	}
	e := f.lastEntry(t)
	if e.Action != audit.ActionSetStatus || e.Outcome != audit.OutcomeFailure || e.Reason != "self-modification" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.ActorID != f.root.ID || e.TargetID != f.root.ID {
		t.Fatalf("unexpected entry ids: %+v", e)
	}
}

func TestSelfRoleAndDeleteBlocked(t *testing.T) {
	f := newAdminFixture(t)
	origin := audit.Origin{}

	if err := f.svc.ChangeRole(context.Background(), f.root, f.root.ID, identity.RoleUser, origin); !errors.Is(err, auth.ErrSelfModification) {
		t.Fatalf("self role change: expected ErrSelfModification, got %v", err)
	}
	if err := f.svc.DeleteUser(context.Background(), f.root, f.root.ID, origin); !errors.Is(err, auth.ErrSelfModification) {
		t.Fatalf("self delete: expected ErrSelfModification, got %v", err)
	}

	// Password rotation is a profile edit and stays allowed on oneself.
	if err := f.svc.UpdatePassword(context.Background(), f.root, f.root.ID, "n3w-secret", origin); err != nil {
		t.Fatalf("self password update: %v", err)
	}
	got, err := f.ids.FindByID(context.Background(), f.root.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.PasswordHash == "x" {
		t.Fatal("expected rotated password hash")
	}
}

func TestChangeRoleAndStatusOnOthers(t *testing.T) {
	f := newAdminFixture(t)
	origin := audit.Origin{}

	if err := f.svc.ChangeRole(context.Background(), f.root, f.alice.ID, identity.RoleAdmin, origin); err != nil {
		t.Fatalf("ChangeRole: %v", err)
	}
	if err := f.svc.SetStatus(context.Background(), f.root, f.alice.ID, false, origin); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got, err := f.ids.FindByID(context.Background(), f.alice.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Role != identity.RoleAdmin || got.Active {
		t.Fatalf("unexpected state: %+v", got)
	}

	if err := f.svc.DeleteUser(context.Background(), f.root, f.alice.ID, origin); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := f.ids.FindByID(context.Background(), f.alice.ID); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Acting on a vanished target is audited as a failure.
	if err := f.svc.SetStatus(context.Background(), f.root, f.alice.ID, true, origin); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if e := f.lastEntry(t); e.Reason != "target not found" {
		t.Fatalf("unexpected reason: %q", e.Reason)
	}
}

func TestQueryAuditIsAudited(t *testing.T) {
	f := newAdminFixture(t)
	origin := audit.Origin{}

	if _, err := f.svc.CreateUser(context.Background(), f.root, "bob", "s3cret!", identity.RoleUser, origin); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	entries, err := f.svc.QueryAudit(context.Background(), f.root, audit.Filters{Action: audit.ActionCreateUser}, origin)
	if err != nil {
		t.Fatalf("QueryAudit: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one create entry, got %d", len(entries))
	}

	// The read itself left a VIEW_AUDIT_LOGS record.
	views, err := f.recorder.Query(context.Background(), audit.Filters{Action: audit.ActionViewAudit})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(views) != 1 || views[0].ActorID != f.root.ID {
		t.Fatalf("expected one audited view, got %+v", views)
	}

	// Non-admins cannot read the log.
	if _, err := f.svc.QueryAudit(context.Background(), f.alice, audit.Filters{}, origin); !errors.Is(err, auth.ErrInsufficientRole) {
		t.Fatalf("expected ErrInsufficientRole, got %v", err)
	}
}
