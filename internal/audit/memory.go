package audit

import (
	"context"
	"sync"
	"time"
)

var _ Recorder = (*Memory)(nil)

// Memory is an in-process Recorder for tests and local development. Entries
// are copied on append and on read so callers cannot mutate the record.
type Memory struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(ctx context.Context, e *Entry) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *Memory) Query(ctx context.Context, f Filters) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	var res []*Entry
	skipped := 0
	// Newest first, matching the SQL recorder.
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if f.ActorID != "" && e.ActorID != f.ActorID {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.TargetID != "" && e.TargetID != f.TargetID {
			continue
		}
		if !f.From.IsZero() && e.OccurredAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !e.OccurredAt.Before(f.To) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		cp := e
		res = append(res, &cp)
		if len(res) >= limit {
			break
		}
	}
	return res, nil
}

// Len reports the number of appended entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
