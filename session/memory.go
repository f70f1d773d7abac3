package session

import (
	"context"
	"slices"
	"sync"
	"time"
)

type entry struct {
	state    State
	lastSeen time.Time
}

// Memory keeps sessions in process. Entries idle for longer than ttl are
// dropped, a zero ttl keeps them forever.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *Memory) expired(e *entry) bool {
	return m.ttl > 0 && m.now().Sub(e.lastSeen) > m.ttl
}

func (m *Memory) Get(_ context.Context, id string) (*State, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok || m.expired(e) {
		delete(m.sessions, id)
		return emptyState(), nil
	}

	e.lastSeen = m.now()
	return clone(&e.state), nil
}

func (m *Memory) Save(_ context.Context, id string, s *State) error {
	if id == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for k, e := range m.sessions {
		if m.expired(e) {
			delete(m.sessions, k)
		}
	}

	m.sessions[id] = &entry{state: *clone(s), lastSeen: m.now()}
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

func clone(s *State) *State {
	c := *s
	c.SelectedIDs = slices.Clone(s.SelectedIDs)
	c.Filter.Labels = slices.Clone(s.Filter.Labels)

	if c.SelectedIDs == nil {
		c.SelectedIDs = []int64{}
	}
	if c.Filter.Labels == nil {
		c.Filter.Labels = []string{}
	}

	return &c
}
