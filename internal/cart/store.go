// Package cart holds the client-side cart: an optimistic projection the
// UI reads for instant feedback, and the last server-confirmed snapshot.
// Optimistic state feeds all display reads and the pricing preview;
// server replies replace both representations wholesale.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
)

// Remote is the slice of the cart collaborator the store drives.
// Consumers define this interface, not the HTTP implementation.
type Remote interface {
	GetCart(ctx context.Context) (*domain.Cart, error)
	UpsertLine(ctx context.Context, productID, variantID string, quantity int) (*domain.Cart, error)
	ClearCart(ctx context.Context) error
}

// Persister writes the confirmed snapshot to durable local state after
// every committed mutation.
type Persister interface {
	SaveCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context) error
}

// QuantityPolicy picks the semantics of AddOrUpdateLine: the product page
// "add to cart" increments, the cart sidebar quantity control overwrites.
type QuantityPolicy int

const (
	PolicyAdd QuantityPolicy = iota
	PolicySet
)

type Store struct {
	remote  Remote
	persist Persister
	logger  *zap.Logger

	mu         sync.RWMutex
	optimistic domain.Cart
	confirmed  domain.Cart

	// issued/applied implement last-request-wins by issuance order for
	// server round trips: a reply is installed only if no later request
	// was issued before it came back.
	issued  atomic.Uint64
	applied uint64 // guarded by mu

	sfg singleflight.Group
}

func NewStore(remote Remote, persist Persister, logger *zap.Logger) *Store {
	return &Store{
		remote:  remote,
		persist: persist,
		logger:  logger,
	}
}

// Load seeds the store from the persisted snapshot, if any. Called once
// when the browsing context is opened.
func (s *Store) Load(cart *domain.Cart) error {
	if cart == nil {
		return nil
	}
	return s.install(context.Background(), cart, false)
}

// Cart returns the optimistic projection. This is the read path for all
// display and for pricing preview input.
func (s *Store) Cart() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.optimistic.Clone()
}

// Confirmed returns the last server-confirmed snapshot.
func (s *Store) Confirmed() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confirmed.Clone()
}

func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.optimistic.ItemCount()
}

func validate(cart *domain.Cart) error {
	seen := make(map[domain.LineKey]bool, len(cart.Items))
	for _, li := range cart.Items {
		if li.Quantity < 1 {
			return fmt.Errorf("%w: line %s/%s has quantity %d",
				domain.ErrInconsistentCart, li.ProductID, li.VariantID, li.Quantity)
		}
		if seen[li.Key()] {
			return fmt.Errorf("%w: duplicate line %s/%s",
				domain.ErrInconsistentCart, li.ProductID, li.VariantID)
		}
		seen[li.Key()] = true
	}
	if cart.TotalAmount != cart.Subtotal() {
		return fmt.Errorf("%w: total %d != line fold %d",
			domain.ErrInconsistentCart, cart.TotalAmount, cart.Subtotal())
	}
	return nil
}

// SetCart replaces both representations with a server-confirmed snapshot.
// A payload that breaks the total or uniqueness invariant is rejected
// rather than installed; advancing past issued requests invalidates any
// line sync still in flight.
func (s *Store) SetCart(ctx context.Context, cart *domain.Cart) error {
	return s.install(ctx, cart, true)
}

func (s *Store) install(ctx context.Context, cart *domain.Cart, advance bool) error {
	if err := validate(cart); err != nil {
		return err
	}
	c := cart.Clone()

	s.mu.Lock()
	s.optimistic = c
	s.confirmed = c.Clone()
	if advance {
		s.applied = s.issued.Add(1)
	}
	s.mu.Unlock()

	s.save(ctx, &c)
	return nil
}

// AddOrUpdateLine mutates the optimistic cart. With PolicyAdd the
// quantity is a delta added to any existing line; with PolicySet it
// overwrites. A resulting quantity below 1 removes the line. The new
// absolute quantity is returned for the follow-up server sync.
func (s *Store) AddOrUpdateLine(line domain.LineItem, policy QuantityPolicy) (int, error) {
	if policy == PolicySet && line.Quantity < 0 {
		return 0, domain.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.optimistic.Items
	idx := -1
	for i, li := range items {
		if li.Key() == line.Key() {
			idx = i
			break
		}
	}

	result := line.Quantity
	switch {
	case idx == -1:
		if result < 1 {
			// nothing to add or remove
			return 0, nil
		}
		items = append(items, line)
	default:
		if policy == PolicyAdd {
			result = items[idx].Quantity + line.Quantity
		}
		if result < 1 {
			items = append(items[:idx], items[idx+1:]...)
			result = 0
		} else {
			items[idx].Quantity = result
		}
	}

	s.optimistic.Items = items
	s.optimistic.TotalAmount = s.optimistic.Subtotal()
	return result, nil
}

// RemoveLine drops the line if present; absent is a no-op, not an error.
func (s *Store) RemoveLine(key domain.LineKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.optimistic.Items
	for i, li := range items {
		if li.Key() == key {
			s.optimistic.Items = append(items[:i], items[i+1:]...)
			break
		}
	}
	s.optimistic.TotalAmount = s.optimistic.Subtotal()
}

// Clear empties both representations and the persisted snapshot. Called
// after a successful order submission, when the server has already
// consumed the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.optimistic = domain.Cart{}
	s.confirmed = domain.Cart{}
	s.applied = s.issued.Add(1)
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.DeleteCart(ctx); err != nil {
			s.logger.Warn("delete persisted cart failed", zap.Error(err))
		}
	}
}

// SyncLine pushes one line's absolute quantity to the server and installs
// the reply, unless a later request was issued while this one was in
// flight; the stale reply is then discarded silently. On failure the
// optimistic state is left untouched for retry.
func (s *Store) SyncLine(ctx context.Context, key domain.LineKey, quantity int) error {
	seq := s.issued.Add(1)

	cart, err := s.remote.UpsertLine(ctx, key.ProductID, key.VariantID, quantity)
	if err != nil {
		return convertRemoteErr(err)
	}

	return s.applySeq(ctx, seq, cart)
}

// SyncClear clears the server-side cart, then the local one.
func (s *Store) SyncClear(ctx context.Context) error {
	if err := s.remote.ClearCart(ctx); err != nil {
		return convertRemoteErr(err)
	}
	s.Clear(ctx)
	return nil
}

// Refresh fetches the server cart and installs it. Concurrent callers
// are coalesced into one round trip.
func (s *Store) Refresh(ctx context.Context) (domain.Cart, error) {
	seq := s.issued.Add(1)
	v, err, _ := s.sfg.Do("refresh", func() (interface{}, error) {
		return s.remote.GetCart(ctx)
	})
	if err != nil {
		return s.Cart(), convertRemoteErr(err)
	}
	if err := s.applySeq(ctx, seq, v.(*domain.Cart)); err != nil {
		return s.Cart(), err
	}
	return s.Cart(), nil
}

func (s *Store) applySeq(ctx context.Context, seq uint64, cart *domain.Cart) error {
	if err := validate(cart); err != nil {
		return err
	}
	c := cart.Clone()

	s.mu.Lock()
	if seq <= s.applied {
		s.mu.Unlock()
		s.logger.Debug("discarding stale cart response", zap.Uint64("seq", seq))
		return nil
	}
	s.applied = seq
	s.optimistic = c
	s.confirmed = c.Clone()
	s.mu.Unlock()

	s.save(ctx, &c)
	return nil
}

func (s *Store) save(ctx context.Context, cart *domain.Cart) {
	if s.persist == nil {
		return
	}
	if err := s.persist.SaveCart(ctx, cart); err != nil {
		s.logger.Warn("persist cart snapshot failed", zap.Error(err))
	}
}

func convertRemoteErr(err error) error {
	if errors.Is(err, domain.ErrInconsistentCart) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
}
