package store

import (
	"context"
	"sync"
)

// Manager owns one Store per authenticated user session. Stores are built
// lazily on first access, rehydrated from the durable cache and refreshed
// from remote storage once.
type Manager struct {
	opts Options

	// WithUser builds a context carrying the given user's identity. Used by
	// background refresh, which runs outside any request.
	withUser func(ctx context.Context, userID string) context.Context

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager constructs a Manager sharing the given collaborators across all
// per-user stores.
func NewManager(opts Options, withUser func(ctx context.Context, userID string) context.Context) *Manager {
	return &Manager{
		opts:     opts,
		withUser: withUser,
		stores:   make(map[string]*Store),
	}
}

// ForUser returns the store for the context's authenticated user, creating it
// on first access. Reports false when no identity is present.
func (m *Manager) ForUser(ctx context.Context) (*Store, bool) {
	userID, ok := m.opts.Identity.CurrentUserID(ctx)
	if !ok {
		return nil, false
	}

	m.mu.Lock()
	st, exists := m.stores[userID]
	if !exists {
		st = New(m.opts)
		m.stores[userID] = st
	}
	m.mu.Unlock()

	if !exists {
		st.Rehydrate(ctx)
		st.Load(ctx)
	}
	return st, true
}

// RefreshAll re-loads every active store from remote storage. Used by the
// scheduled background refresh.
func (m *Manager) RefreshAll(ctx context.Context) {
	if m.withUser == nil {
		return
	}

	m.mu.Lock()
	users := make([]string, 0, len(m.stores))
	for userID := range m.stores {
		users = append(users, userID)
	}
	m.mu.Unlock()

	for _, userID := range users {
		m.mu.Lock()
		st := m.stores[userID]
		m.mu.Unlock()
		if st != nil {
			st.Load(m.withUser(ctx, userID))
		}
	}
}
