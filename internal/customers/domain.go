package customers

import "time"

// Customer is an account-holding buyer. Balance is derived from the ledger:
// positive means the customer owes money, negative means a surplus.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput describes a new customer.
type CreateInput struct {
	Name    string
	Phone   string
	Email   string
	Address string
	ActorID int64
}

// UpdateInput describes a customer edit. Balance is not editable here.
type UpdateInput struct {
	Name    string
	Phone   string
	Email   string
	Address string
	ActorID int64
}
