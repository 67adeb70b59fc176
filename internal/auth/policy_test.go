package auth

import (
	"errors"
	"testing"

	"gatehouse.org/internal/audit"
)

func TestForbidSelfTarget(t *testing.T) {
	restricted := []audit.Action{
		audit.ActionChangeRole,
		audit.ActionSetStatus,
		audit.ActionDeleteUser,
	}
	for _, action := range restricted {
		if err := ForbidSelfTarget("u1", "u1", action); !errors.Is(err, ErrSelfModification) {
			t.Fatalf("%s on self: expected ErrSelfModification, got %v", action, err)
		}
		if err := ForbidSelfTarget("u1", "u2", action); err != nil {
			t.Fatalf("%s on other: expected allow, got %v", action, err)
		}
	}

	// Profile-level edits on oneself stay allowed.
	if err := ForbidSelfTarget("u1", "u1", audit.ActionUpdateUser); err != nil {
		t.Fatalf("update on self: expected allow, got %v", err)
	}

	// An empty actor id never matches a target.
	if err := ForbidSelfTarget("", "", audit.ActionDeleteUser); err != nil {
		t.Fatalf("empty ids: expected allow, got %v", err)
	}
}
