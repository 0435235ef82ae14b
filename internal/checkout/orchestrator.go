// Package checkout drives the multi-step checkout flow: shipping info,
// payment method, review, submission. One Orchestrator is created per
// checkout attempt and discarded after success or abandonment.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
	"github.com/juliodz03/websitetmdt-client/internal/preview"
)

// Submission is the order payload assembled at the review step.
type Submission struct {
	Lines           []domain.LineItem
	ShippingAddress domain.ShippingAddress
	PaymentMethod   domain.PaymentMethod
	DiscountCode    string
	PointsToUse     int
	GuestInfo       *domain.GuestInfo
}

// Result is a committed order. Token and User are set when the server
// created an account for a guest checkout.
type Result struct {
	OrderID string
	Token   string
	User    *domain.User
}

type Submitter interface {
	Submit(ctx context.Context, sub Submission) (*Result, error)
}

// CartSource is the cart slice the orchestrator needs: the lines the
// user is looking at, and clearing after a committed order.
type CartSource interface {
	Cart() domain.Cart
	Clear(ctx context.Context)
}

type PreviewEngine interface {
	Refresh(ctx context.Context, in preview.Inputs) (*domain.PricingPreview, error)
	Last() (*domain.PricingPreview, bool)
	Invalidate()
	Reset()
}

type Orchestrator struct {
	cart      CartSource
	previews  PreviewEngine
	submitter Submitter
	identity  func() domain.Identity
	// onAuth persists the credential a guest checkout produced; the
	// identity becomes authenticated from the client's perspective.
	onAuth func(ctx context.Context, auth *domain.AuthState) error
	logger *zap.Logger

	mu          sync.Mutex
	step        domain.CheckoutStep
	shipping    domain.ShippingAddress
	guestEmail  string
	payment     domain.PaymentMethod
	discount    string
	points      int
	lastErr     string
	orderID     string
	inflight    bool
	mustRefresh bool
	aborted     bool
}

// New opens a checkout attempt. The cart must be non-empty to enter.
// When authenticated, the shipping draft is seeded from the user's
// default saved address.
func New(cartSrc CartSource, previews PreviewEngine, submitter Submitter, identity func() domain.Identity, onAuth func(ctx context.Context, auth *domain.AuthState) error, logger *zap.Logger) (*Orchestrator, error) {
	if cartSrc.Cart().IsEmpty() {
		return nil, domain.ErrEmptyCart
	}
	o := &Orchestrator{
		cart:      cartSrc,
		previews:  previews,
		submitter: submitter,
		identity:  identity,
		onAuth:    onAuth,
		logger:    logger,
		step:      domain.StepShippingInfo,
		payment:   domain.PaymentCOD,
	}
	id := identity()
	if id.IsAuthenticated() {
		o.shipping.FullName = id.Auth.User.FullName
		if addr, ok := id.Auth.User.DefaultAddress(); ok {
			o.shipping = addr
		}
	}
	return o, nil
}

func (o *Orchestrator) Step() domain.CheckoutStep {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.step
}

// LastError is the message attached to the review step after a rejected
// submission; empty otherwise.
func (o *Orchestrator) LastError() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *Orchestrator) OrderID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.orderID
}

// SetShipping updates the shipping draft. Only editable on the shipping
// step; later steps review it read-only.
func (o *Orchestrator) SetShipping(addr domain.ShippingAddress, guestEmail string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.step != domain.StepShippingInfo {
		return domain.ErrIllegalTransition
	}
	o.shipping = addr
	o.guestEmail = strings.TrimSpace(guestEmail)
	return nil
}

func (o *Orchestrator) SetPayment(m domain.PaymentMethod) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.step != domain.StepPaymentMethod {
		return domain.ErrIllegalTransition
	}
	if !m.Valid() {
		return domain.FieldErrors{"paymentMethod": "must be cod or bank_transfer"}
	}
	o.payment = m
	return nil
}

// SetPricingInputs records the discount code and points request. Codes
// are normalized to upper case the way they are printed. The caller
// follows up with RefreshPreview.
func (o *Orchestrator) SetPricingInputs(discountCode string, points int) {
	o.mu.Lock()
	o.discount = strings.ToUpper(strings.TrimSpace(discountCode))
	o.points = points
	o.mu.Unlock()
}

func (o *Orchestrator) validateShipping() domain.FieldErrors {
	fe := domain.FieldErrors{}
	required := map[string]string{
		"fullName": o.shipping.FullName,
		"phone":    o.shipping.Phone,
		"street":   o.shipping.Street,
		"city":     o.shipping.City,
		"province": o.shipping.Province,
	}
	for field, v := range required {
		if strings.TrimSpace(v) == "" {
			fe[field] = "required"
		}
	}
	if !o.identity().IsAuthenticated() && o.guestEmail == "" {
		fe["guestEmail"] = "required for guest checkout"
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// Next advances one step forward, enforcing the exit guard of the
// current step. The transition is blocked, with field errors surfaced,
// until the guard is satisfied.
func (o *Orchestrator) Next(ctx context.Context) (domain.CheckoutStep, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.checkAlive(); err != nil {
		return o.step, err
	}

	switch o.step {
	case domain.StepShippingInfo:
		if fe := o.validateShipping(); fe != nil {
			return o.step, fe
		}
		o.step = domain.StepPaymentMethod
	case domain.StepPaymentMethod:
		if !o.payment.Valid() {
			return o.step, domain.FieldErrors{"paymentMethod": "must be cod or bank_transfer"}
		}
		o.step = domain.StepReview
	default:
		return o.step, domain.ErrIllegalTransition
	}
	return o.step, nil
}

// Back navigates one step backward. Permitted everywhere except while a
// submission is in flight.
func (o *Orchestrator) Back() (domain.CheckoutStep, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.step {
	case domain.StepPaymentMethod:
		o.step = domain.StepShippingInfo
	case domain.StepReview:
		o.step = domain.StepPaymentMethod
	default:
		return o.step, domain.ErrIllegalTransition
	}
	return o.step, nil
}

// RefreshPreview recomputes the pricing projection for the current cart,
// discount code and points request.
func (o *Orchestrator) RefreshPreview(ctx context.Context) (*domain.PricingPreview, error) {
	o.mu.Lock()
	if err := o.checkAlive(); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	in := preview.Inputs{
		Lines:           o.cart.Cart().Items,
		DiscountCode:    o.discount,
		PointsRequested: o.points,
		AvailablePoints: o.identity().AvailablePoints(),
	}
	o.mu.Unlock()

	p, err := o.previews.Refresh(ctx, in)
	if err != nil {
		return p, err
	}
	o.mu.Lock()
	o.mustRefresh = false
	o.mu.Unlock()
	return p, nil
}

// checkAlive aborts the whole session when the cart drained mid-checkout
// (e.g. from another tab). Fatal to this attempt only. Caller holds mu.
func (o *Orchestrator) checkAlive() error {
	if o.aborted {
		return domain.ErrCheckoutAborted
	}
	if o.cart.Cart().IsEmpty() {
		o.aborted = true
		o.previews.Reset()
		return fmt.Errorf("%w: %v", domain.ErrCheckoutAborted, domain.ErrEmptyCart)
	}
	return nil
}

// Abort discards the attempt, e.g. on navigation away from checkout.
// In-flight replies are then ignored.
func (o *Orchestrator) Abort() {
	o.mu.Lock()
	o.aborted = true
	o.previews.Reset()
	o.mu.Unlock()
}

// Submit commits the order. At most one submission is in flight per
// session; a rejected submission returns the flow to review with the
// error retained so the user can correct and retry.
func (o *Orchestrator) Submit(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	if err := o.checkAlive(); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	if o.inflight {
		o.mu.Unlock()
		return nil, domain.ErrSubmissionInFlight
	}
	if o.step != domain.StepReview {
		o.mu.Unlock()
		return nil, domain.ErrIllegalTransition
	}
	if o.mustRefresh {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: refresh the pricing preview before resubmitting", domain.ErrStalePricing)
	}

	id := o.identity()
	sub := Submission{
		Lines:           o.cart.Cart().Items,
		ShippingAddress: o.shipping,
		PaymentMethod:   o.payment,
		DiscountCode:    o.discount,
		PointsToUse:     o.points,
	}
	if !id.IsAuthenticated() {
		sub.GuestInfo = &domain.GuestInfo{
			Email:    o.guestEmail,
			FullName: o.shipping.FullName,
			Phone:    o.shipping.Phone,
		}
	}
	o.step = domain.StepSubmitting
	o.inflight = true
	o.mu.Unlock()

	res, err := o.submitter.Submit(ctx, sub)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.inflight = false

	if o.aborted {
		// navigated away while the request was outstanding; do not touch
		// state for a screen no longer active
		o.logger.Warn("submission finished after abort", zap.Error(err))
		return nil, domain.ErrCheckoutAborted
	}

	if err != nil {
		// Submitting -> Failed -> Review collapsed into one assignment:
		// StepFailed is never held between requests, the flow lands back
		// at review with the form and cart intact for correction
		o.step = domain.StepReview
		o.lastErr = err.Error()
		if errors.Is(err, domain.ErrStalePricing) {
			o.mustRefresh = true
			o.previews.Invalidate()
			return nil, fmt.Errorf("%w: %v", domain.ErrStalePricing, err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: order submission: %v", domain.ErrUnavailable, err)
	}

	o.step = domain.StepSuccess
	o.orderID = res.OrderID
	o.lastErr = ""
	o.cart.Clear(ctx)
	o.previews.Reset()

	if res.Token != "" && o.onAuth != nil {
		auth := &domain.AuthState{Token: res.Token}
		if res.User != nil {
			auth.User = *res.User
		}
		if err := o.onAuth(ctx, auth); err != nil {
			// the order exists; losing the fresh credential is
			// recoverable via normal login
			o.logger.Warn("persisting guest checkout credential failed", zap.Error(err))
		}
	}
	return res, nil
}
