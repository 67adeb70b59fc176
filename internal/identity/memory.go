package identity

import (
	"context"
	"sort"
	"sync"
	"time"

	"gatehouse.org/internal/ids"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store used by tests and local development.
type Memory struct {
	mu     sync.RWMutex
	byID   map[string]*Identity
	byName map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		byID:   make(map[string]*Identity),
		byName: make(map[string]string),
	}
}

func (m *Memory) FindByID(ctx context.Context, id string) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) FindByUsername(ctx context.Context, username string) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *Memory) List(ctx context.Context) ([]*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]*Identity, 0, len(m.byID))
	for _, u := range m.byID {
		cp := *u
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (m *Memory) Create(ctx context.Context, u *Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[u.Username]; ok {
		return ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	cp := *u
	m.byID[cp.ID] = &cp
	m.byName[cp.Username] = cp.ID
	return nil
}

// Put replaces a stored identity. Used by the admin memory store.
func (m *Memory) Put(u *Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.byID[cp.ID] = &cp
	m.byName[cp.Username] = cp.ID
}

// Delete removes an identity. Used by the admin memory store.
func (m *Memory) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		delete(m.byName, u.Username)
		delete(m.byID, id)
	}
}
