package security

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"gatehouse.org/internal/ids"
)

// LoginAttempt is a write-once record of one authentication attempt. It is
// read by security monitoring, never updated.
type LoginAttempt struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	OriginIP   string    `json:"origin_ip,omitempty"`
	Success    bool      `json:"success"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AttemptStore persists login attempts.
type AttemptStore interface {
	Record(ctx context.Context, a *LoginAttempt) error
	RecentFailures(ctx context.Context, username string, since time.Time) (int, error)
}

var _ AttemptStore = (*AttemptPG)(nil)

// AttemptPG implements AttemptStore on PostgreSQL.
type AttemptPG struct {
	db *sql.DB
}

func NewAttemptPG(db *sql.DB) *AttemptPG {
	return &AttemptPG{db: db}
}

func (s *AttemptPG) Record(ctx context.Context, a *LoginAttempt) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	if a.OccurredAt.IsZero() {
		a.OccurredAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into login_attempts(id, username, origin_ip, success, occurred_at)
		 values($1,$2,$3,$4,$5)`,
		a.ID, a.Username, a.OriginIP, a.Success, a.OccurredAt,
	)
	return err
}

func (s *AttemptPG) RecentFailures(ctx context.Context, username string, since time.Time) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`select count(*) from login_attempts where username=$1 and success=false and occurred_at>=$2`,
		username, since,
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

var _ AttemptStore = (*AttemptMemory)(nil)

// AttemptMemory is an in-process AttemptStore for tests and local runs.
type AttemptMemory struct {
	mu       sync.RWMutex
	attempts []LoginAttempt
}

func NewAttemptMemory() *AttemptMemory {
	return &AttemptMemory{}
}

func (s *AttemptMemory) Record(ctx context.Context, a *LoginAttempt) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	if a.OccurredAt.IsZero() {
		a.OccurredAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, *a)
	return nil
}

func (s *AttemptMemory) RecentFailures(ctx context.Context, username string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.attempts {
		if a.Username == username && !a.Success && !a.OccurredAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// All returns a copy of every recorded attempt, oldest first.
func (s *AttemptMemory) All() []LoginAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LoginAttempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}
