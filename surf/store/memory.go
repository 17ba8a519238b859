// Package store provides Backend implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/surf-debug/surf"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	users     map[string]surf.User // by access token
	breaks    []surf.Break
	sessions  []surf.Session
	forecasts []surf.ForecastRecord

	// Err, when set, is returned by the matching read instead of data.
	Err map[string]error
}

func NewMemory() *Memory {
	return &Memory{
		users: make(map[string]surf.User),
		Err:   make(map[string]error),
	}
}

// AddUser registers a user reachable with accessToken.
func (m *Memory) AddUser(accessToken string, u surf.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[accessToken] = u
}

// AddBreaks appends breaks in the order given.
func (m *Memory) AddBreaks(bs ...surf.Break) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breaks = append(m.breaks, bs...)
}

func (m *Memory) AddSessions(ss ...surf.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, ss...)
}

func (m *Memory) AddForecasts(fs ...surf.ForecastRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forecasts = append(m.forecasts, fs...)
}

// FailOn makes the named read ("user", "breaks", "sessions", "forecasts")
// return err.
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err[op] = err
}

func (m *Memory) CurrentUser(_ context.Context, accessToken string) (*surf.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.Err["user"]; err != nil {
		return nil, err
	}
	u, ok := m.users[accessToken]
	if !ok || accessToken == "" {
		return nil, nil
	}
	return &u, nil
}

func (m *Memory) ListBreaks(_ context.Context, userID surf.UserID) ([]surf.Break, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.Err["breaks"]; err != nil {
		return nil, err
	}
	var out []surf.Break
	for _, b := range m.breaks {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *Memory) ListSessions(_ context.Context, userID surf.UserID) ([]surf.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.Err["sessions"]; err != nil {
		return nil, err
	}
	var out []surf.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) ListAllForecasts(_ context.Context) ([]surf.ForecastRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.Err["forecasts"]; err != nil {
		return nil, err
	}
	out := make([]surf.ForecastRecord, len(m.forecasts))
	copy(out, m.forecasts)
	return out, nil
}
