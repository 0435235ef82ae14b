package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
	"github.com/juliodz03/websitetmdt-client/internal/platform"
)

type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("encode response failed", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondDomainError maps the error taxonomy to HTTP statuses. Raw
// transport errors never reach the client; they arrive here already
// wrapped as domain.ErrUnavailable.
func respondDomainError(w http.ResponseWriter, err error) {
	var fe domain.FieldErrors
	if errors.As(err, &fe) {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "validation failed",
			Code:   "validation_error",
			Fields: fe,
		})
		return
	}

	var apiErr *platform.APIError
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, domain.ErrCheckoutAborted):
		respondError(w, http.StatusGone, "checkout_aborted", err.Error())
	case errors.Is(err, domain.ErrSubmissionInFlight):
		respondError(w, http.StatusConflict, "submission_in_flight", err.Error())
	case errors.Is(err, domain.ErrStalePricing):
		respondError(w, http.StatusConflict, "stale_pricing", err.Error())
	case errors.Is(err, domain.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInconsistentCart):
		respondError(w, http.StatusBadRequest, "invalid_cart_mutation", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.As(err, &apiErr):
		respondError(w, apiErr.Status, "upstream_rejected", apiErr.Message)
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
