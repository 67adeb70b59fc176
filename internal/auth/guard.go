package auth

import "gatehouse.org/internal/identity"

// RequireActive rejects identities whose active flag is down, regardless of
// role.
func RequireActive(id *identity.Identity) error {
	if id == nil || !id.Active {
		return ErrAccountInactive
	}
	return nil
}

// RequireRole rejects identities whose role is not an exact match. There is
// no role hierarchy.
func RequireRole(id *identity.Identity, role identity.Role) error {
	if id == nil || id.Role != role {
		return ErrInsufficientRole
	}
	return nil
}

// CheckAccess runs the status gate before the role gate, so a deactivated
// account is told it is inactive and never learns which role the operation
// wanted.
func CheckAccess(id *identity.Identity, role identity.Role) error {
	if err := RequireActive(id); err != nil {
		return err
	}
	return RequireRole(id, role)
}
