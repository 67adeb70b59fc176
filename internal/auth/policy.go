package auth

import "gatehouse.org/internal/audit"

// restrictedSelfActions alter the target's privilege level or operability.
// Profile edits that leave role, status and existence untouched are not in
// the set.
var restrictedSelfActions = map[audit.Action]struct{}{
	audit.ActionChangeRole: {},
	audit.ActionSetStatus:  {},
	audit.ActionDeleteUser: {},
}

// ForbidSelfTarget rejects operations where the actor would change its own
// privilege or operability. It must run only after CheckAccess has passed,
// so an unauthorized caller never learns whether the target is itself.
func ForbidSelfTarget(actorID, targetID string, action audit.Action) error {
	if actorID == "" || actorID != targetID {
		return nil
	}
	if _, restricted := restrictedSelfActions[action]; restricted {
		return ErrSelfModification
	}
	return nil
}
