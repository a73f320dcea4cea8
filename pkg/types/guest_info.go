package types

// GuestInfo identifies an unauthenticated buyer on a guest order.
type GuestInfo struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Address Address `json:"address"`
}
