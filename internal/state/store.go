// Package state persists the client-side slice of a browsing context:
// the anonymous session id, the auth credential, and the last confirmed
// cart snapshot. Loaded once when a context is opened and written back
// on every committed mutation; everything authoritative lives on the
// platform side.
package state

import (
	"context"
	"errors"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
)

type Store interface {
	GetSessionID(ctx context.Context, clientID string) (string, error)
	SetSessionID(ctx context.Context, clientID, sessionID string) error

	GetAuth(ctx context.Context, clientID string) (*domain.AuthState, error)
	SetAuth(ctx context.Context, clientID string, auth *domain.AuthState) error
	DeleteAuth(ctx context.Context, clientID string) error

	GetCart(ctx context.Context, clientID string) (*domain.Cart, error)
	SetCart(ctx context.Context, clientID string, cart *domain.Cart) error
	DeleteCart(ctx context.Context, clientID string) error
}

var ErrNotFound = errors.New("state entry not found")
