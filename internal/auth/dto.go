package auth

// LoginRequest is the payload for authenticating.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=80"`
	Password string `json:"password" validate:"required,min=8"`
}

// CreateUserRequest is the payload for registering an account.
type CreateUserRequest struct {
	Username    string   `json:"username" validate:"required,max=80"`
	Password    string   `json:"password" validate:"required,min=8"`
	Role        string   `json:"role" validate:"required,oneof=admin user"`
	Permissions []string `json:"permissions,omitempty"`
}

// UpdateUserRequest is the payload for editing an account. An empty
// password leaves the current one in place.
type UpdateUserRequest struct {
	Username    string   `json:"username" validate:"required,max=80"`
	Password    string   `json:"password,omitempty" validate:"omitempty,min=8"`
	Role        string   `json:"role" validate:"required,oneof=admin user"`
	Active      bool     `json:"active"`
	Permissions []string `json:"permissions,omitempty"`
}
