package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
	"github.com/juliodz03/websitetmdt-client/internal/platform"
	"github.com/juliodz03/websitetmdt-client/internal/session"
)

type AuthHandler struct {
	identity *platform.Client
	sessions *session.Manager
	timeout  time.Duration
	logger   *zap.Logger
}

func NewAuthHandler(identity *platform.Client, sessions *session.Manager, timeout time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{identity: identity, sessions: sessions, timeout: timeout, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authView struct {
	User      domain.User `json:"user"`
	ItemCount int         `json:"itemCount"`
}

// Login authenticates and upgrades the session in place. The guest cart
// merge runs inside the upgrade; its failure never fails the login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	auth, err := h.identity.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := h.sessions.Upgrade(ctx, sess, auth); err != nil {
		h.logger.Warn("persisting auth state failed", zap.Error(err))
	}

	respondJSON(w, http.StatusOK, authView{
		User:      auth.User,
		ItemCount: sess.Cart.ItemCount(),
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	auth, err := h.identity.Register(ctx, req.Email, req.Password, req.FullName)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.sessions.Upgrade(ctx, sess, auth); err != nil {
		h.logger.Warn("persisting auth state failed", zap.Error(err))
	}
	respondJSON(w, http.StatusCreated, authView{
		User:      auth.User,
		ItemCount: sess.Cart.ItemCount(),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := h.sessions.Logout(ctx, sess); err != nil {
		h.logger.Warn("clearing auth state failed", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me proxies the profile fetch and installs the result as the session's
// cached user, so the fresh loyalty balance feeds the points clamp on
// the next preview.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, err := h.identity.Me(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.sessions.RefreshUser(ctx, sess, *user); err != nil {
		h.logger.Warn("persisting refreshed profile failed", zap.Error(err))
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}
