package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrEmptyCart blocks checkout entry and aborts a session whose cart
	// drained mid-flow.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidQuantity rejects explicit negative quantities before any
	// cart mutation happens.
	ErrInvalidQuantity = errors.New("quantity must not be negative")

	// ErrInconsistentCart means a cart payload whose total does not match
	// the fold of its lines, or with duplicate (product, variant) lines.
	ErrInconsistentCart = errors.New("cart payload is inconsistent")

	// ErrIllegalTransition is returned for checkout step moves outside the
	// transition table.
	ErrIllegalTransition = errors.New("illegal checkout step transition")

	// ErrSubmissionInFlight guards the at-most-one outstanding submission
	// rule.
	ErrSubmissionInFlight = errors.New("order submission already in flight")

	// ErrStalePricing is a submission rejection because a discount or the
	// points request is no longer valid; recoverable after a fresh preview.
	ErrStalePricing = errors.New("pricing no longer valid")

	// ErrCheckoutAborted is fatal to the checkout session only: the cart
	// drained underneath it.
	ErrCheckoutAborted = errors.New("checkout session aborted")

	// ErrUnavailable wraps any collaborator transport failure. State is
	// preserved and the same action may be retried.
	ErrUnavailable = errors.New("service unavailable")

	// ErrUnauthorized is a rejected or expired credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is a missing remote resource.
	ErrNotFound = errors.New("not found")
)

// FieldErrors carries per-field validation failures that block a checkout
// step transition.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}
