// Package session owns the identity of a browsing context: a generated
// anonymous session id for guests, upgraded in place when the user
// authenticates. Each Session aggregates the per-context cart store,
// preview engine and (while one is open) checkout attempt.
package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/juliodz03/websitetmdt-client/internal/cart"
	"github.com/juliodz03/websitetmdt-client/internal/checkout"
	"github.com/juliodz03/websitetmdt-client/internal/domain"
	"github.com/juliodz03/websitetmdt-client/internal/merge"
	"github.com/juliodz03/websitetmdt-client/internal/preview"
	"github.com/juliodz03/websitetmdt-client/internal/state"
)

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewSessionID generates a guest cart-correlation key: timestamp plus a
// random suffix. Not a security credential, so no cryptographic
// randomness is needed; the entropy only has to avoid collisions across
// concurrent guest sessions.
func NewSessionID() string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), suffix)
}

// Session is one browsing context. Single-writer: the HTTP layer
// serializes mutations per session via the embedded stores' own locks.
type Session struct {
	ID string

	Cart     *cart.Store
	Previews *preview.Engine

	mu       sync.Mutex
	auth     *domain.AuthState
	merged   bool
	checkout *checkout.Orchestrator
}

// Identity snapshots the active identity.
func (s *Session) Identity() domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Identity{SessionID: s.ID, Auth: s.auth}
}

// Checkout returns the open checkout attempt, if any.
func (s *Session) Checkout() *checkout.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout
}

func (s *Session) SetCheckout(o *checkout.Orchestrator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout != nil {
		s.checkout.Abort()
	}
	s.checkout = o
}

// CloseCheckout discards the open attempt, cancelling whatever it still
// has in flight.
func (s *Session) CloseCheckout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout != nil {
		s.checkout.Abort()
		s.checkout = nil
	}
}

// Manager owns all live sessions and rehydrates them from the durable
// state store. Constructed once at the application root and passed down;
// no ambient globals.
type Manager struct {
	store      state.Store
	reconciler *merge.Reconciler
	logger     *zap.Logger

	newCart func(sess *Session) *cart.Store
	newPrev func(sess *Session) *preview.Engine

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(store state.Store, reconciler *merge.Reconciler, newCart func(*Session) *cart.Store, newPrev func(*Session) *preview.Engine, logger *zap.Logger) *Manager {
	return &Manager{
		store:      store,
		reconciler: reconciler,
		logger:     logger,
		newCart:    newCart,
		newPrev:    newPrev,
		sessions:   make(map[string]*Session),
	}
}

// GetOrCreate resolves the session for the given id, creating and
// persisting a fresh one when the id is empty or unknown. Idempotent:
// repeated calls with the same persisted id return the same session.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if sess, ok := m.sessions[id]; ok {
			return sess, nil
		}
	}

	fresh := false
	if id == "" {
		id = NewSessionID()
		fresh = true
	} else {
		if _, err := m.store.GetSessionID(ctx, id); err != nil {
			// unknown to the durable store as well: treat the presented id
			// as the first sighting of this context
			fresh = true
		}
	}

	sess := &Session{ID: id}
	sess.Cart = m.newCart(sess)
	sess.Previews = m.newPrev(sess)

	if fresh {
		// persist only on first generation
		if err := m.store.SetSessionID(ctx, id, id); err != nil {
			return nil, err
		}
	} else {
		m.rehydrate(ctx, sess)
	}

	m.sessions[id] = sess
	return sess, nil
}

func (m *Manager) rehydrate(ctx context.Context, sess *Session) {
	if auth, err := m.store.GetAuth(ctx, sess.ID); err == nil {
		sess.mu.Lock()
		sess.auth = auth
		sess.merged = true // this context already logged in once
		sess.mu.Unlock()
	}
	if snap, err := m.store.GetCart(ctx, sess.ID); err == nil {
		if err := sess.Cart.Load(snap); err != nil {
			m.logger.Warn("discarding inconsistent persisted cart",
				zap.String("session_id", sess.ID), zap.Error(err))
		}
	}
}

// Upgrade switches the session from anonymous to authenticated and
// triggers the guest cart merge exactly once per anonymous phase. A
// failed merge never fails the login; the guest cart is simply orphaned.
func (m *Manager) Upgrade(ctx context.Context, sess *Session, auth *domain.AuthState) error {
	sess.mu.Lock()
	sess.auth = auth
	needMerge := !sess.merged
	sess.merged = true
	sess.mu.Unlock()

	if err := m.store.SetAuth(ctx, sess.ID, auth); err != nil {
		return err
	}

	if needMerge {
		if _, err := m.reconciler.Merge(ctx, sess.ID, cartSetter{sess.Cart}); err != nil {
			m.logger.Warn("guest cart merge failed, continuing login",
				zap.String("session_id", sess.ID), zap.Error(err))
		}
	}
	return nil
}

// RefreshUser replaces the cached profile on an authenticated session,
// so identity-derived values such as the loyalty balance track the
// server instead of the login-time snapshot. No-op for guests.
func (m *Manager) RefreshUser(ctx context.Context, sess *Session, user domain.User) error {
	sess.mu.Lock()
	if sess.auth == nil {
		sess.mu.Unlock()
		return nil
	}
	updated := *sess.auth
	updated.User = user
	sess.auth = &updated
	sess.mu.Unlock()
	return m.store.SetAuth(ctx, sess.ID, &updated)
}

// Adopt installs a credential without a cart merge. Used when a guest
// checkout produced a new account: the guest cart was consumed by the
// order, there is nothing left to merge.
func (m *Manager) Adopt(ctx context.Context, sess *Session, auth *domain.AuthState) error {
	sess.mu.Lock()
	sess.auth = auth
	sess.merged = true
	sess.mu.Unlock()
	return m.store.SetAuth(ctx, sess.ID, auth)
}

// Logout drops the credential and returns the context to anonymous. The
// session id is kept, and a later login merges again (the server-side
// merge is idempotent).
func (m *Manager) Logout(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	sess.auth = nil
	sess.merged = false
	sess.mu.Unlock()
	return m.store.DeleteAuth(ctx, sess.ID)
}

// cartSetter adapts the cart store to the reconciler's installer.
type cartSetter struct {
	store *cart.Store
}

func (c cartSetter) SetCart(ctx context.Context, cart *domain.Cart) error {
	return c.store.SetCart(ctx, cart)
}

// CartPersister binds the durable state store to one session's cart
// snapshot slot.
type CartPersister struct {
	Store     state.Store
	SessionID string
}

func (p CartPersister) SaveCart(ctx context.Context, cart *domain.Cart) error {
	return p.Store.SetCart(ctx, p.SessionID, cart)
}

func (p CartPersister) DeleteCart(ctx context.Context) error {
	return p.Store.DeleteCart(ctx, p.SessionID)
}
