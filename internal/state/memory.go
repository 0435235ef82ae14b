package state

import (
	"context"
	"sync"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
)

// MemoryStore is a map-backed Store. Used in tests and when no redis is
// configured; state then lives only as long as the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]string
	auths    map[string]domain.AuthState
	carts    map[string]domain.Cart
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]string),
		auths:    make(map[string]domain.AuthState),
		carts:    make(map[string]domain.Cart),
	}
}

func (m *MemoryStore) GetSessionID(_ context.Context, clientID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.sessions[clientID]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) SetSessionID(_ context.Context, clientID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[clientID] = sessionID
	return nil
}

func (m *MemoryStore) GetAuth(_ context.Context, clientID string) (*domain.AuthState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.auths[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	auth := v
	return &auth, nil
}

func (m *MemoryStore) SetAuth(_ context.Context, clientID string, auth *domain.AuthState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auths[clientID] = *auth
	return nil
}

func (m *MemoryStore) DeleteAuth(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.auths, clientID)
	return nil
}

func (m *MemoryStore) GetCart(_ context.Context, clientID string) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.carts[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	cart := v.Clone()
	return &cart, nil
}

func (m *MemoryStore) SetCart(_ context.Context, clientID string, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[clientID] = cart.Clone()
	return nil
}

func (m *MemoryStore) DeleteCart(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, clientID)
	return nil
}
