package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/juliodz03/websitetmdt-client/internal/checkout"
	"github.com/juliodz03/websitetmdt-client/internal/domain"
	"github.com/juliodz03/websitetmdt-client/internal/platform"
	"github.com/juliodz03/websitetmdt-client/internal/session"
)

type CheckoutHandler struct {
	platform *platform.Client
	sessions *session.Manager
	timeout  time.Duration
	logger   *zap.Logger
}

func NewCheckoutHandler(pc *platform.Client, sessions *session.Manager, timeout time.Duration, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{platform: pc, sessions: sessions, timeout: timeout, logger: logger}
}

// platformSubmitter adapts the checkout endpoint to the orchestrator's
// Submitter.
type platformSubmitter struct {
	client *platform.Client
}

func (s platformSubmitter) Submit(ctx context.Context, sub checkout.Submission) (*checkout.Result, error) {
	req := platform.NewCheckoutRequest(sub.Lines, sub.ShippingAddress, sub.PaymentMethod,
		sub.DiscountCode, sub.PointsToUse, sub.GuestInfo)
	res, err := s.client.Checkout(ctx, req)
	if err != nil {
		return nil, err
	}
	return &checkout.Result{OrderID: res.Order.ID, Token: res.Token, User: res.User}, nil
}

type checkoutView struct {
	Step      domain.CheckoutStep    `json:"step"`
	LastError string                 `json:"lastError,omitempty"`
	OrderID   string                 `json:"orderId,omitempty"`
	Preview   *domain.PricingPreview `json:"preview,omitempty"`
	Stale     bool                   `json:"previewStale,omitempty"`
}

func (h *CheckoutHandler) view(sess *session.Session, o *checkout.Orchestrator) checkoutView {
	p, stale := sess.Previews.Last()
	return checkoutView{
		Step:      o.Step(),
		LastError: o.LastError(),
		OrderID:   o.OrderID(),
		Preview:   p,
		Stale:     stale,
	}
}

// Start opens a checkout attempt for the session, replacing any
// abandoned one.
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	o, err := checkout.New(
		sess.Cart,
		sess.Previews,
		credentialedSubmitter{client: h.platform, creds: func() platform.Credentials {
			c := platform.Credentials{SessionID: sess.ID}
			if id := sess.Identity(); id.IsAuthenticated() {
				c.Token = id.Auth.Token
			}
			return c
		}},
		sess.Identity,
		func(ctx context.Context, auth *domain.AuthState) error {
			return h.sessions.Adopt(ctx, sess, auth)
		},
		h.logger,
	)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	sess.SetCheckout(o)
	respondJSON(w, http.StatusCreated, h.view(sess, o))
}

// credentialedSubmitter resolves the session's credentials at submission
// time, not at checkout start; a login mid-checkout is then honored.
type credentialedSubmitter struct {
	client *platform.Client
	creds  func() platform.Credentials
}

func (s credentialedSubmitter) Submit(ctx context.Context, sub checkout.Submission) (*checkout.Result, error) {
	ctx = platform.WithCredentials(ctx, s.creds())
	return platformSubmitter{client: s.client}.Submit(ctx, sub)
}

func (h *CheckoutHandler) require(w http.ResponseWriter, r *http.Request) *checkout.Orchestrator {
	sess := sessionFrom(r.Context())
	o := sess.Checkout()
	if o == nil {
		respondError(w, http.StatusNotFound, "no_checkout", "no open checkout session")
		return nil
	}
	return o
}

type shippingRequest struct {
	Address    domain.ShippingAddress `json:"address"`
	GuestEmail string                 `json:"guestEmail,omitempty"`
}

func (h *CheckoutHandler) SetShipping(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	o := h.require(w, r)
	if o == nil {
		return
	}
	var req shippingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := o.SetShipping(req.Address, req.GuestEmail); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.view(sess, o))
}

type paymentRequest struct {
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
}

func (h *CheckoutHandler) SetPayment(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	o := h.require(w, r)
	if o == nil {
		return
	}
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := o.SetPayment(req.PaymentMethod); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.view(sess, o))
}

func (h *CheckoutHandler) Next(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	o := h.require(w, r)
	if o == nil {
		return
	}
	if _, err := o.Next(r.Context()); err != nil {
		h.maybeDropAborted(sess, err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.view(sess, o))
}

func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	o := h.require(w, r)
	if o == nil {
		return
	}
	if _, err := o.Back(); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.view(sess, o))
}

type pricingRequest struct {
	DiscountCode string `json:"discountCode"`
	PointsToUse  int    `json:"pointsToUse"`
}

// SetPricing records the discount code and points request and recomputes
// the preview. On refresh failure the previous projection is kept and
// reported stale.
func (h *CheckoutHandler) SetPricing(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	o := h.require(w, r)
	if o == nil {
		return
	}
	var req pricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	o.SetPricingInputs(req.DiscountCode, req.PointsToUse)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if _, err := o.RefreshPreview(ctx); err != nil {
		h.maybeDropAborted(sess, err)
		if errorsIsAborted(err) {
			respondDomainError(w, err)
			return
		}
		// stale-but-valid preview is preferable to none; report it along
		// with the staleness flag
		h.logger.Warn("preview refresh failed", zap.Error(err))
	}
	respondJSON(w, http.StatusOK, h.view(sess, o))
}

func (h *CheckoutHandler) RefreshPreview(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	o := h.require(w, r)
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if _, err := o.RefreshPreview(ctx); err != nil {
		h.maybeDropAborted(sess, err)
		if errorsIsAborted(err) {
			respondDomainError(w, err)
			return
		}
		h.logger.Warn("preview refresh failed", zap.Error(err))
	}
	respondJSON(w, http.StatusOK, h.view(sess, o))
}

func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	o := h.require(w, r)
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := o.Submit(ctx)
	if err != nil {
		h.maybeDropAborted(sess, err)
		respondDomainError(w, err)
		return
	}

	sess.CloseCheckout()
	respondJSON(w, http.StatusOK, map[string]any{
		"orderId":       res.OrderID,
		"accountLinked": res.Token != "",
	})
}

func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.CloseCheckout()
	w.WriteHeader(http.StatusNoContent)
}

// ValidateDiscount checks a code against the current optimistic
// subtotal, distinct from the full preview.
func (h *CheckoutHandler) ValidateDiscount(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	code := chi.URLParam(r, "code")

	subtotal := sess.Cart.Cart().Subtotal()
	if v := r.URL.Query().Get("subtotal"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			subtotal = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	res, err := h.platform.ValidateDiscount(ctx, code, subtotal)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// maybeDropAborted tears down the session's checkout once it aborted
// itself (cart drained mid-flow).
func (h *CheckoutHandler) maybeDropAborted(sess *session.Session, err error) {
	if errorsIsAborted(err) {
		sess.CloseCheckout()
	}
}

func errorsIsAborted(err error) bool {
	return errors.Is(err, domain.ErrCheckoutAborted)
}
