package domain

// CheckoutStep is the current position in the checkout flow.
type CheckoutStep string

const (
	StepShippingInfo  CheckoutStep = "SHIPPING_INFO"
	StepPaymentMethod CheckoutStep = "PAYMENT_METHOD"
	StepReview        CheckoutStep = "REVIEW"
	StepSubmitting    CheckoutStep = "SUBMITTING"
	StepSuccess       CheckoutStep = "SUCCESS"
	// StepFailed is transient: a rejected submission passes through it
	// and lands back at StepReview within the same operation, so callers
	// never observe it between requests.
	StepFailed CheckoutStep = "FAILED"
)

func (s CheckoutStep) IsTerminal() bool {
	return s == StepSuccess
}

func (s CheckoutStep) String() string {
	return string(s)
}

var validNext = map[CheckoutStep]map[CheckoutStep]bool{
	StepShippingInfo:  {StepPaymentMethod: true},
	StepPaymentMethod: {StepReview: true, StepShippingInfo: true},
	StepReview:        {StepSubmitting: true, StepPaymentMethod: true},
	StepSubmitting:    {StepSuccess: true, StepFailed: true},
	StepFailed:        {StepReview: true},
	StepSuccess:       {},
}

func CanTransition(from, to CheckoutStep) bool {
	return validNext[from][to]
}

type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "cod"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentCOD || p == PaymentBankTransfer
}

type ShippingAddress struct {
	FullName  string `json:"fullName"`
	Phone     string `json:"phone"`
	Street    string `json:"street"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Country   string `json:"country,omitempty"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

// GuestInfo accompanies a guest submission; the server creates an
// account from it and returns a credential for the new user.
type GuestInfo struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

// Order is the server's record of a committed checkout; the client only
// reads it back for confirmation and history.
type Order struct {
	ID          string `json:"_id"`
	Status      string `json:"status"`
	TotalAmount int64  `json:"totalAmount"`
}
