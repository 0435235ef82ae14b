package domain

// Address is an entry in the user's saved address book.
type Address = ShippingAddress

// User is the cached profile of an authenticated customer.
type User struct {
	ID            string    `json:"_id"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	LoyaltyPoints int       `json:"loyaltyPoints"`
	Addresses     []Address `json:"addresses,omitempty"`
}

// DefaultAddress returns the address flagged as default, falling back to
// the first saved one.
func (u User) DefaultAddress() (Address, bool) {
	if len(u.Addresses) == 0 {
		return Address{}, false
	}
	for _, a := range u.Addresses {
		if a.IsDefault {
			return a, true
		}
	}
	return u.Addresses[0], true
}

// AuthState is the persisted credential pair for an authenticated
// browsing context.
type AuthState struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Identity is the active identity of a browsing context: always an
// anonymous session id, plus a user once authenticated. Exactly one of
// the two modes is in effect at a time.
type Identity struct {
	SessionID string
	Auth      *AuthState
}

func (id Identity) IsAuthenticated() bool {
	return id.Auth != nil
}

// AvailablePoints is the loyalty balance the client may request to
// redeem. Zero for guests.
func (id Identity) AvailablePoints() int {
	if id.Auth == nil {
		return 0
	}
	return id.Auth.User.LoyaltyPoints
}
