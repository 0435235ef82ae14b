package preview

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
)

type mockPricing struct {
	m   sync.Mutex
	err error

	calls []previewCall

	// entered/release hold the first call in flight
	entered chan struct{}
	release chan struct{}
}

type previewCall struct {
	code   string
	points int
}

func (m *mockPricing) Preview(_ context.Context, lines []domain.LineItem, code string, points int) (*domain.PricingPreview, error) {
	m.m.Lock()
	m.calls = append(m.calls, previewCall{code: code, points: points})
	first := len(m.calls) == 1
	entered, release := m.entered, m.release
	err := m.err
	m.m.Unlock()

	if first && entered != nil {
		close(entered)
		<-release
	}
	if err != nil {
		return nil, err
	}

	var subtotal int64
	for _, li := range lines {
		subtotal += li.UnitPrice * int64(li.Quantity)
	}
	discount := int64(0)
	if code != "" {
		discount = subtotal / 10
	}
	pointsDiscount := int64(points) * 1000
	return &domain.PricingPreview{
		Subtotal:        subtotal,
		DiscountCode:    code,
		DiscountAmount:  discount,
		PointsRequested: points,
		PointsDiscount:  pointsDiscount,
		TotalAmount:     subtotal - discount - pointsDiscount,
		DiscountValid:   code != "",
	}, nil
}

func (m *mockPricing) lastCall() previewCall {
	m.m.Lock()
	defer m.m.Unlock()
	return m.calls[len(m.calls)-1]
}

func lines(qty int, price int64) []domain.LineItem {
	return []domain.LineItem{{ProductID: "p1", VariantID: "v1", Quantity: qty, UnitPrice: price}}
}

func TestRefresh_ComputesTotals(t *testing.T) {
	pricing := &mockPricing{}
	sut := NewEngine(pricing, zap.NewNop())

	p, err := sut.Refresh(context.Background(), Inputs{Lines: lines(2, 100000)})
	require.NoError(t, err)
	assert.Equal(t, int64(200000), p.Subtotal)
	assert.Equal(t, int64(200000), p.TotalAmount)

	last, stale := sut.Last()
	assert.Equal(t, p, last)
	assert.False(t, stale)
}

func TestRefresh_UppercasesDiscountCode(t *testing.T) {
	pricing := &mockPricing{}
	sut := NewEngine(pricing, zap.NewNop())

	p, err := sut.Refresh(context.Background(), Inputs{
		Lines:        lines(1, 100000),
		DiscountCode: "  summer10 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "SUMMER10", pricing.lastCall().code)
	assert.Equal(t, "SUMMER10", p.DiscountCode)
}

func TestRefresh_ClampsPointsToAvailable(t *testing.T) {
	pricing := &mockPricing{}
	sut := NewEngine(pricing, zap.NewNop())

	_, err := sut.Refresh(context.Background(), Inputs{
		Lines:           lines(1, 1000000),
		PointsRequested: 500,
		AvailablePoints: 120,
	})
	require.NoError(t, err)
	assert.Equal(t, 120, pricing.lastCall().points)
}

func TestRefresh_NegativePointsClampToZero(t *testing.T) {
	pricing := &mockPricing{}
	sut := NewEngine(pricing, zap.NewNop())

	_, err := sut.Refresh(context.Background(), Inputs{
		Lines:           lines(1, 100000),
		PointsRequested: -5,
		AvailablePoints: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, pricing.lastCall().points)
}

func TestRefresh_FailureKeepsLastPreviewMarkedStale(t *testing.T) {
	pricing := &mockPricing{}
	sut := NewEngine(pricing, zap.NewNop())

	good, err := sut.Refresh(context.Background(), Inputs{Lines: lines(1, 100000)})
	require.NoError(t, err)

	pricing.m.Lock()
	pricing.err = fmt.Errorf("pricing down")
	pricing.m.Unlock()

	p, err := sut.Refresh(context.Background(), Inputs{Lines: lines(2, 100000)})
	require.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, good.Subtotal, p.Subtotal, "last good preview is returned")

	last, stale := sut.Last()
	assert.True(t, stale)
	assert.Equal(t, good.Subtotal, last.Subtotal)
}

func TestRefresh_SlowEarlyReplyDiscarded(t *testing.T) {
	// Two refreshes overlap: the earlier one resolves last. Its reply
	// must not overwrite the preview computed for the newer inputs.
	pricing := &mockPricing{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	sut := NewEngine(pricing, zap.NewNop())

	type result struct {
		p   *domain.PricingPreview
		err error
	}
	done := make(chan result, 1)
	go func() {
		p, err := sut.Refresh(context.Background(), Inputs{Lines: lines(1, 100000)})
		done <- result{p, err}
	}()
	<-pricing.entered

	p2, err := sut.Refresh(context.Background(), Inputs{Lines: lines(5, 100000)})
	require.NoError(t, err)
	assert.Equal(t, int64(500000), p2.Subtotal)

	close(pricing.release)
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, int64(500000), r.p.Subtotal, "superseded refresh returns the newer projection")

	last, stale := sut.Last()
	assert.False(t, stale)
	assert.Equal(t, int64(500000), last.Subtotal)
}

func TestRefresh_SupersededFailureNotMarkedStale(t *testing.T) {
	// An earlier refresh fails after a newer one already succeeded. The
	// failure concerns inputs nobody is looking at anymore, so the fresh
	// preview must not be flagged stale.
	pricing := &mockPricing{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		err:     fmt.Errorf("pricing down"),
	}
	sut := NewEngine(pricing, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := sut.Refresh(context.Background(), Inputs{Lines: lines(1, 100000)})
		done <- err
	}()
	<-pricing.entered

	pricing.m.Lock()
	pricing.err = nil
	pricing.m.Unlock()

	p2, err := sut.Refresh(context.Background(), Inputs{Lines: lines(5, 100000)})
	require.NoError(t, err)
	assert.Equal(t, int64(500000), p2.Subtotal)

	close(pricing.release)
	require.NoError(t, <-done, "superseded failure is silently discarded")

	last, stale := sut.Last()
	assert.False(t, stale, "fresh preview stays valid")
	assert.Equal(t, int64(500000), last.Subtotal)
}

func TestInvalidate_MarksStaleKeepsValue(t *testing.T) {
	pricing := &mockPricing{}
	sut := NewEngine(pricing, zap.NewNop())

	_, err := sut.Refresh(context.Background(), Inputs{Lines: lines(1, 100000)})
	require.NoError(t, err)

	sut.Invalidate()
	last, stale := sut.Last()
	assert.True(t, stale)
	require.NotNil(t, last)
	assert.Equal(t, int64(100000), last.Subtotal)
}

func TestReset_DropsCachedPreview(t *testing.T) {
	pricing := &mockPricing{}
	sut := NewEngine(pricing, zap.NewNop())

	_, err := sut.Refresh(context.Background(), Inputs{Lines: lines(1, 100000)})
	require.NoError(t, err)

	sut.Reset()
	last, stale := sut.Last()
	assert.Nil(t, last)
	assert.False(t, stale)
}

func TestReset_IgnoresInFlightReply(t *testing.T) {
	// A refresh still in flight when the checkout session ends must land
	// dead on arrival, not resurface in the next attempt.
	pricing := &mockPricing{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	sut := NewEngine(pricing, zap.NewNop())

	type result struct {
		p   *domain.PricingPreview
		err error
	}
	done := make(chan result, 1)
	go func() {
		p, err := sut.Refresh(context.Background(), Inputs{Lines: lines(1, 100000)})
		done <- result{p, err}
	}()
	<-pricing.entered

	sut.Reset()
	close(pricing.release)

	r := <-done
	require.NoError(t, r.err)
	assert.Nil(t, r.p)

	last, stale := sut.Last()
	assert.Nil(t, last, "abandoned reply is not installed")
	assert.False(t, stale)
}
