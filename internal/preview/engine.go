// Package preview computes the checkout pricing projection by asking the
// pricing collaborator. Inputs are the cart lines, the entered discount
// code and the requested loyalty points; any change to one of the three
// warrants a refresh.
package preview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
)

type Client interface {
	Preview(ctx context.Context, lines []domain.LineItem, discountCode string, pointsToUse int) (*domain.PricingPreview, error)
}

type Engine struct {
	client Client
	logger *zap.Logger

	// issued orders refreshes; a reply is applied only when no newer
	// refresh was issued while it was in flight, so a slow early response
	// can never overwrite the preview for the latest inputs.
	issued atomic.Uint64

	mu      sync.RWMutex
	applied uint64
	last    *domain.PricingPreview
	stale   bool
}

func NewEngine(client Client, logger *zap.Logger) *Engine {
	return &Engine{client: client, logger: logger}
}

// Inputs are the three watched values a preview is a pure function of.
type Inputs struct {
	Lines           []domain.LineItem
	DiscountCode    string
	PointsRequested int
	AvailablePoints int
}

// normalize uppercases the code and clamps the points request into
// [0, available]. The server clamps again at its own balance; this only
// keeps obviously impossible requests off the wire.
func (in Inputs) normalize() Inputs {
	in.DiscountCode = strings.ToUpper(strings.TrimSpace(in.DiscountCode))
	if in.PointsRequested < 0 {
		in.PointsRequested = 0
	}
	if in.PointsRequested > in.AvailablePoints {
		in.PointsRequested = in.AvailablePoints
	}
	return in
}

// Refresh requests authoritative totals for the given inputs. On failure
// the last good preview stays in place, marked stale, and the error is
// returned so the orchestrator can warn before allowing submission.
// A reply superseded by a newer request is discarded and the newer
// projection is returned instead.
func (e *Engine) Refresh(ctx context.Context, in Inputs) (*domain.PricingPreview, error) {
	in = in.normalize()
	seq := e.issued.Add(1)

	p, err := e.client.Preview(ctx, in.Lines, in.DiscountCode, in.PointsRequested)
	if err != nil {
		e.mu.Lock()
		if seq <= e.applied {
			// A newer refresh already landed; this failure is about
			// inputs nobody is looking at anymore.
			last := e.last
			e.mu.Unlock()
			e.logger.Debug("discarding superseded preview failure", zap.Uint64("seq", seq))
			return clone(last), nil
		}
		e.stale = true
		last := e.last
		e.mu.Unlock()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return last, err
		}
		return last, fmt.Errorf("%w: pricing preview: %v", domain.ErrUnavailable, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq <= e.applied {
		e.logger.Debug("discarding stale preview response", zap.Uint64("seq", seq))
		return clone(e.last), nil
	}
	e.applied = seq
	e.last = p
	e.stale = false
	return clone(p), nil
}

// Last returns the cached projection and whether it is stale, meaning a
// refresh has failed since it was computed.
func (e *Engine) Last() (*domain.PricingPreview, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return clone(e.last), e.stale
}

// Invalidate marks the cached projection stale without discarding it,
// forcing the orchestrator to obtain a fresh one before resubmission.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	e.stale = true
	e.mu.Unlock()
}

// Reset drops all cached state; used when the checkout session ends.
// Advancing the watermark past every issued refresh makes replies still
// in flight land dead on arrival instead of resurfacing in the next
// checkout attempt.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.applied = e.issued.Add(1)
	e.last = nil
	e.stale = false
	e.mu.Unlock()
}

func clone(p *domain.PricingPreview) *domain.PricingPreview {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
