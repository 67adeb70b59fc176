// Package audit keeps an append-only record of every privileged-operation
// attempt: who acted, on what, and how it ended. Entries are created exactly
// once per attempt, at the point of decision, and never mutated.
package audit

import (
	"context"
	"time"

	"gatehouse.org/internal/ids"
)

// Action identifies the kind of privileged operation attempted.
type Action string

const (
	ActionLogin        Action = "LOGIN"
	ActionRefreshToken Action = "REFRESH_TOKEN"
	ActionCreateUser   Action = "CREATE_USER"
	ActionUpdateUser   Action = "UPDATE_USER"
	ActionChangeRole   Action = "CHANGE_USER_ROLE"
	ActionSetStatus    Action = "SET_USER_STATUS"
	ActionDeleteUser   Action = "DELETE_USER"
	ActionViewAudit    Action = "VIEW_AUDIT_LOGS"
	ActionRateLimited  Action = "RATE_LIMIT_EXCEEDED"
	ActionLockout      Action = "ACCOUNT_LOCKOUT"
)

// Outcome records how the attempt ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Origin is opaque request context carried for accountability. It never
// participates in authorization decisions.
type Origin struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Entry is one immutable audit record.
type Entry struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id,omitempty"`
	Action     Action    `json:"action"`
	TargetID   string    `json:"target_id,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	Origin     Origin    `json:"origin"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEntry starts an entry for an attempt. Outcome and reason are filled at
// the decision point; OccurredAt is stamped on append if still zero.
func NewEntry(actorID string, action Action, targetID string, origin Origin) *Entry {
	return &Entry{
		ID:       ids.New(),
		ActorID:  actorID,
		Action:   action,
		TargetID: targetID,
		Origin:   origin,
	}
}

// Succeeded marks the entry as a success and returns it.
func (e *Entry) Succeeded() *Entry {
	e.Outcome = OutcomeSuccess
	e.Reason = ""
	return e
}

// Failed marks the entry as a failure with a non-sensitive reason.
func (e *Entry) Failed(reason string) *Entry {
	e.Outcome = OutcomeFailure
	e.Reason = reason
	return e
}

// Filters narrows a Query. Zero values are ignored.
type Filters struct {
	ActorID  string
	Action   Action
	TargetID string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// Recorder persists and retrieves audit entries. Append must be called
// exactly once per privileged-operation attempt, success or rejection.
type Recorder interface {
	Append(ctx context.Context, e *Entry) error
	Query(ctx context.Context, f Filters) ([]*Entry, error)
}
