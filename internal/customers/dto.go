package customers

// CreateCustomerRequest is the payload for registering a customer.
type CreateCustomerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Email   string `json:"email,omitempty" validate:"omitempty,email,max=120"`
	Address string `json:"address,omitempty"`
}

// UpdateCustomerRequest is the payload for editing a customer.
type UpdateCustomerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Email   string `json:"email,omitempty" validate:"omitempty,email,max=120"`
	Address string `json:"address,omitempty"`
}
