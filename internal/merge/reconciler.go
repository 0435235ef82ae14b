// Package merge reconciles a guest session's server-side cart into the
// authenticated user's cart after login.
package merge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
)

type Client interface {
	MergeCart(ctx context.Context, sessionID string) (*domain.Cart, error)
}

// CartInstaller installs a server-confirmed snapshot wholesale.
type CartInstaller interface {
	SetCart(ctx context.Context, cart *domain.Cart) error
}

type Reconciler struct {
	client Client
	logger *zap.Logger
}

func NewReconciler(client Client, logger *zap.Logger) *Reconciler {
	return &Reconciler{client: client, logger: logger}
}

// Merge asks the server to fold the guest cart into the user's and
// installs the result. The union, quantity summation and stock capping
// all happen server-side; repeating the call with the same session id
// yields the same cart, so retries are safe. The client never attempts
// its own merge arithmetic.
func (r *Reconciler) Merge(ctx context.Context, guestSessionID string, into CartInstaller) (*domain.Cart, error) {
	merged, err := r.client.MergeCart(ctx, guestSessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: cart merge: %v", domain.ErrUnavailable, err)
	}
	if err := into.SetCart(ctx, merged); err != nil {
		return nil, err
	}
	r.logger.Info("guest cart merged",
		zap.String("session_id", guestSessionID),
		zap.Int("lines", len(merged.Items)))
	return merged, nil
}
