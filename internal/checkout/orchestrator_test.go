package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
	"github.com/juliodz03/websitetmdt-client/internal/preview"
)

type mockCart struct {
	m      sync.Mutex
	cart   domain.Cart
	clears int
}

func (m *mockCart) Cart() domain.Cart {
	m.m.Lock()
	defer m.m.Unlock()
	return m.cart.Clone()
}

func (m *mockCart) Clear(context.Context) {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = domain.Cart{}
	m.clears++
}

func (m *mockCart) drain() {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = domain.Cart{}
}

type mockPreviews struct {
	m          sync.Mutex
	last       *domain.PricingPreview
	stale      bool
	refreshErr error
	refreshes  int
	resets     int
}

func (m *mockPreviews) Refresh(_ context.Context, in preview.Inputs) (*domain.PricingPreview, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.refreshes++
	if m.refreshErr != nil {
		m.stale = true
		return m.last, m.refreshErr
	}
	var subtotal int64
	for _, li := range in.Lines {
		subtotal += li.UnitPrice * int64(li.Quantity)
	}
	m.last = &domain.PricingPreview{Subtotal: subtotal, TotalAmount: subtotal, DiscountCode: in.DiscountCode}
	m.stale = false
	return m.last, nil
}

func (m *mockPreviews) Last() (*domain.PricingPreview, bool) {
	m.m.Lock()
	defer m.m.Unlock()
	return m.last, m.stale
}

func (m *mockPreviews) Invalidate() {
	m.m.Lock()
	defer m.m.Unlock()
	m.stale = true
}

func (m *mockPreviews) Reset() {
	m.m.Lock()
	defer m.m.Unlock()
	m.last = nil
	m.stale = false
	m.resets++
}

type mockSubmitter struct {
	m   sync.Mutex
	res *Result
	err error

	subs []Submission

	entered chan struct{}
	release chan struct{}
}

func (m *mockSubmitter) Submit(_ context.Context, sub Submission) (*Result, error) {
	m.m.Lock()
	m.subs = append(m.subs, sub)
	first := len(m.subs) == 1
	entered, release := m.entered, m.release
	res, err := m.res, m.err
	m.m.Unlock()

	if first && entered != nil {
		close(entered)
		<-release
		m.m.Lock()
		res, err = m.res, m.err
		m.m.Unlock()
	}
	return res, err
}

func anon() func() domain.Identity {
	return func() domain.Identity { return domain.Identity{SessionID: "session_1_abc"} }
}

func authed(points int) func() domain.Identity {
	return func() domain.Identity {
		return domain.Identity{
			SessionID: "session_1_abc",
			Auth: &domain.AuthState{Token: "t", User: domain.User{
				FullName:      "Nguyen Van A",
				LoyaltyPoints: points,
				Addresses: []domain.Address{
					{FullName: "Nguyen Van A", Phone: "0901", Street: "1 Le Loi", City: "HCMC", Province: "HCM", IsDefault: true},
				},
			}},
		}
	}
}

func filledCart() *mockCart {
	return &mockCart{cart: domain.Cart{
		Items:       []domain.LineItem{{ProductID: "p1", VariantID: "v1", Quantity: 2, UnitPrice: 150000}},
		TotalAmount: 300000,
	}}
}

func validAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName: "Nguyen Van A", Phone: "0901234567",
		Street: "1 Le Loi", City: "HCMC", Province: "HCM",
	}
}

func advanceToReview(t *testing.T, o *Orchestrator, guestEmail string) {
	t.Helper()
	require.NoError(t, o.SetShipping(validAddress(), guestEmail))
	_, err := o.Next(context.Background())
	require.NoError(t, err)
	require.NoError(t, o.SetPayment(domain.PaymentCOD))
	_, err = o.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.StepReview, o.Step())
}

func TestNew_EmptyCartRejected(t *testing.T) {
	_, err := New(&mockCart{}, &mockPreviews{}, &mockSubmitter{}, anon(), nil, zap.NewNop())
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestNew_PrefillsDefaultAddress(t *testing.T) {
	o, err := New(filledCart(), &mockPreviews{}, &mockSubmitter{}, authed(0), nil, zap.NewNop())
	require.NoError(t, err)

	// the prefilled draft passes the shipping guard with no edits
	_, err = o.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StepPaymentMethod, o.Step())
}

func TestNext_ShippingGuardCollectsFieldErrors(t *testing.T) {
	o, err := New(filledCart(), &mockPreviews{}, &mockSubmitter{}, anon(), nil, zap.NewNop())
	require.NoError(t, err)

	_, err = o.Next(context.Background())
	var fe domain.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "fullName")
	assert.Contains(t, fe, "phone")
	assert.Contains(t, fe, "guestEmail")
	assert.Equal(t, domain.StepShippingInfo, o.Step())
}

func TestNext_GuestNeedsEmail(t *testing.T) {
	o, err := New(filledCart(), &mockPreviews{}, &mockSubmitter{}, anon(), nil, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, o.SetShipping(validAddress(), ""))

	_, err = o.Next(context.Background())
	var fe domain.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "guestEmail")

	require.NoError(t, o.SetShipping(validAddress(), "guest@example.com"))
	_, err = o.Next(context.Background())
	require.NoError(t, err)
}

func TestSetPayment_InvalidMethod(t *testing.T) {
	o, err := New(filledCart(), &mockPreviews{}, &mockSubmitter{}, authed(0), nil, zap.NewNop())
	require.NoError(t, err)
	_, err = o.Next(context.Background())
	require.NoError(t, err)

	err = o.SetPayment(domain.PaymentMethod("crypto"))
	var fe domain.FieldErrors
	assert.ErrorAs(t, err, &fe)
}

func TestSetShipping_OnlyOnShippingStep(t *testing.T) {
	o, err := New(filledCart(), &mockPreviews{}, &mockSubmitter{}, authed(0), nil, zap.NewNop())
	require.NoError(t, err)
	_, err = o.Next(context.Background())
	require.NoError(t, err)

	err = o.SetShipping(validAddress(), "")
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestBack_WalksOneStep(t *testing.T) {
	o, err := New(filledCart(), &mockPreviews{}, &mockSubmitter{}, authed(0), nil, zap.NewNop())
	require.NoError(t, err)
	advanceToReview(t, o, "")

	step, err := o.Back()
	require.NoError(t, err)
	assert.Equal(t, domain.StepPaymentMethod, step)

	step, err = o.Back()
	require.NoError(t, err)
	assert.Equal(t, domain.StepShippingInfo, step)

	_, err = o.Back()
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestSubmit_OnlyFromReview(t *testing.T) {
	o, err := New(filledCart(), &mockPreviews{}, &mockSubmitter{}, authed(0), nil, zap.NewNop())
	require.NoError(t, err)

	_, err = o.Submit(context.Background())
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestSubmit_Success(t *testing.T) {
	cart := filledCart()
	previews := &mockPreviews{}
	submitter := &mockSubmitter{res: &Result{OrderID: "ord_123"}}
	o, err := New(cart, previews, submitter, authed(0), nil, zap.NewNop())
	require.NoError(t, err)
	advanceToReview(t, o, "")

	res, err := o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ord_123", res.OrderID)
	assert.Equal(t, domain.StepSuccess, o.Step())
	assert.Equal(t, "ord_123", o.OrderID())
	assert.Equal(t, 1, cart.clears)
	assert.Equal(t, 1, previews.resets)
}

func TestSubmit_GuestCarriesGuestInfo(t *testing.T) {
	submitter := &mockSubmitter{res: &Result{OrderID: "ord_1"}}
	o, err := New(filledCart(), &mockPreviews{}, submitter, anon(), nil, zap.NewNop())
	require.NoError(t, err)
	advanceToReview(t, o, "guest@example.com")

	_, err = o.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, submitter.subs, 1)
	gi := submitter.subs[0].GuestInfo
	require.NotNil(t, gi)
	assert.Equal(t, "guest@example.com", gi.Email)
	assert.Equal(t, "Nguyen Van A", gi.FullName)
}

func TestSubmit_AuthenticatedOmitsGuestInfo(t *testing.T) {
	submitter := &mockSubmitter{res: &Result{OrderID: "ord_1"}}
	o, err := New(filledCart(), &mockPreviews{}, submitter, authed(0), nil, zap.NewNop())
	require.NoError(t, err)
	advanceToReview(t, o, "")

	_, err = o.Submit(context.Background())
	require.NoError(t, err)
	assert.Nil(t, submitter.subs[0].GuestInfo)
}

func TestSubmit_GuestTokenPersistedViaOnAuth(t *testing.T) {
	submitter := &mockSubmitter{res: &Result{
		OrderID: "ord_9",
		Token:   "fresh-token",
		User:    &domain.User{ID: "u1", Email: "guest@example.com"},
	}}
	var got *domain.AuthState
	onAuth := func(_ context.Context, auth *domain.AuthState) error {
		got = auth
		return nil
	}
	o, err := New(filledCart(), &mockPreviews{}, submitter, anon(), onAuth, zap.NewNop())
	require.NoError(t, err)
	advanceToReview(t, o, "guest@example.com")

	_, err = o.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fresh-token", got.Token)
	assert.Equal(t, "u1", got.User.ID)
}

func TestSubmit_RejectionReturnsToReview(t *testing.T) {
	cart := filledCart()
	submitter := &mockSubmitter{err: fmt.Errorf("insufficient stock")}
	o, err := New(cart, &mockPreviews{}, submitter, authed(0), nil, zap.NewNop())
	require.NoError(t, err)
	advanceToReview(t, o, "")

	_, err = o.Submit(context.Background())
	require.ErrorIs(t, err, domain.ErrUnavailable)

	assert.Equal(t, domain.StepReview, o.Step())
	assert.Contains(t, o.LastError(), "insufficient stock")
	assert.Equal(t, 0, cart.clears, "cart survives a rejected submission")

	// the attempt is retryable
	submitter.m.Lock()
	submitter.err = nil
	submitter.res = &Result{OrderID: "ord_2"}
	submitter.m.Unlock()
	res, err := o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ord_2", res.OrderID)
	assert.Empty(t, o.LastError())
}

func TestSubmit_StalePricingForcesRefresh(t *testing.T) {
	previews := &mockPreviews{}
	submitter := &mockSubmitter{err: fmt.Errorf("%w: totals changed", domain.ErrStalePricing)}
	o, err := New(filledCart(), previews, submitter, authed(0), nil, zap.NewNop())
	require.NoError(t, err)
	advanceToReview(t, o, "")

	_, err = o.Submit(context.Background())
	require.ErrorIs(t, err, domain.ErrStalePricing)
	assert.Equal(t, domain.StepReview, o.Step())
	_, stale := previews.Last()
	assert.True(t, stale)

	// resubmitting without a refresh is refused locally
	submitter.m.Lock()
	submitter.err = nil
	submitter.res = &Result{OrderID: "ord_3"}
	submitter.m.Unlock()
	_, err = o.Submit(context.Background())
	require.ErrorIs(t, err, domain.ErrStalePricing)

	_, err = o.RefreshPreview(context.Background())
	require.NoError(t, err)
	res, err := o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ord_3", res.OrderID)
}

func TestSubmit_AtMostOneInFlight(t *testing.T) {
	submitter := &mockSubmitter{
		res:     &Result{OrderID: "ord_1"},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	o, err := New(filledCart(), &mockPreviews{}, submitter, authed(0), nil, zap.NewNop())
	require.NoError(t, err)
	advanceToReview(t, o, "")

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background())
		done <- err
	}()
	<-submitter.entered

	_, err = o.Submit(context.Background())
	assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)

	close(submitter.release)
	require.NoError(t, <-done)
	assert.Len(t, submitter.subs, 1)
}

func TestSubmit_CartDrainedAborts(t *testing.T) {
	cart := filledCart()
	o, err := New(cart, &mockPreviews{}, &mockSubmitter{}, authed(0), nil, zap.NewNop())
	require.NoError(t, err)
	advanceToReview(t, o, "")

	cart.drain()
	_, err = o.Submit(context.Background())
	assert.ErrorIs(t, err, domain.ErrCheckoutAborted)

	// the attempt stays dead
	_, err = o.Next(context.Background())
	assert.ErrorIs(t, err, domain.ErrCheckoutAborted)
}

func TestSubmit_AbortDuringFlightIgnoresResult(t *testing.T) {
	submitter := &mockSubmitter{
		res:     &Result{OrderID: "ord_1"},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	o, err := New(filledCart(), &mockPreviews{}, submitter, authed(0), nil, zap.NewNop())
	require.NoError(t, err)
	advanceToReview(t, o, "")

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background())
		done <- err
	}()
	<-submitter.entered

	o.Abort()
	close(submitter.release)
	assert.ErrorIs(t, <-done, domain.ErrCheckoutAborted)
	assert.Empty(t, o.OrderID())
}

func TestRefreshPreview_UsesNormalizedInputs(t *testing.T) {
	previews := &mockPreviews{}
	o, err := New(filledCart(), previews, &mockSubmitter{}, authed(500), nil, zap.NewNop())
	require.NoError(t, err)

	o.SetPricingInputs("tet2026", 100)
	p, err := o.RefreshPreview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "TET2026", p.DiscountCode)
}

func TestRefreshPreview_FailureKeepsLast(t *testing.T) {
	previews := &mockPreviews{}
	o, err := New(filledCart(), previews, &mockSubmitter{}, authed(0), nil, zap.NewNop())
	require.NoError(t, err)

	_, err = o.RefreshPreview(context.Background())
	require.NoError(t, err)

	previews.m.Lock()
	previews.refreshErr = fmt.Errorf("pricing down")
	previews.m.Unlock()

	p, err := o.RefreshPreview(context.Background())
	require.Error(t, err)
	require.NotNil(t, p, "last good preview is still available")
	assert.Equal(t, int64(300000), p.Subtotal)
}
