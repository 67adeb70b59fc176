package auth

import (
	"errors"
	"testing"

	"gatehouse.org/internal/identity"
)

func TestCheckAccessStatusBeforeRole(t *testing.T) {
	inactiveAdmin := &identity.Identity{ID: "a1", Role: identity.RoleAdmin, Active: false}

	// A deactivated admin is told it is inactive, never that its role is
	// insufficient.
	if err := CheckAccess(inactiveAdmin, identity.RoleAdmin); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}

	inactiveUser := &identity.Identity{ID: "u1", Role: identity.RoleUser, Active: false}
	if err := CheckAccess(inactiveUser, identity.RoleAdmin); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive before role check, got %v", err)
	}

	activeUser := &identity.Identity{ID: "u2", Role: identity.RoleUser, Active: true}
	if err := CheckAccess(activeUser, identity.RoleAdmin); !errors.Is(err, ErrInsufficientRole) {
		t.Fatalf("expected ErrInsufficientRole, got %v", err)
	}

	activeAdmin := &identity.Identity{ID: "a2", Role: identity.RoleAdmin, Active: true}
	if err := CheckAccess(activeAdmin, identity.RoleAdmin); err != nil {
		t.Fatalf("expected access, got %v", err)
	}
}

func TestRequireRoleExactMatch(t *testing.T) {
	admin := &identity.Identity{ID: "a1", Role: identity.RoleAdmin, Active: true}
	user := &identity.Identity{ID: "u1", Role: identity.RoleUser, Active: true}

	// No hierarchy: an admin does not implicitly satisfy the user role.
	if err := RequireRole(admin, identity.RoleUser); !errors.Is(err, ErrInsufficientRole) {
		t.Fatalf("expected ErrInsufficientRole, got %v", err)
	}
	if err := RequireRole(user, identity.RoleUser); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := RequireRole(nil, identity.RoleUser); !errors.Is(err, ErrInsufficientRole) {
		t.Fatalf("expected ErrInsufficientRole for nil identity, got %v", err)
	}
}

func TestRequireActive(t *testing.T) {
	if err := RequireActive(nil); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive for nil identity, got %v", err)
	}
	if err := RequireActive(&identity.Identity{Active: true}); err != nil {
		t.Fatalf("expected active, got %v", err)
	}
}
