package auth

// User is an operator account. Role is "admin" or "user"; admins bypass
// permission grants.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	Active       bool   `json:"active"`
}

// CreateUserInput describes a new account.
type CreateUserInput struct {
	Username    string
	Password    string
	Role        string
	Permissions []string
	ActorID     int64
}

// UpdateUserInput describes an account edit. An empty password leaves the
// hash unchanged.
type UpdateUserInput struct {
	Username    string
	Password    string
	Role        string
	Active      bool
	Permissions []string
	ActorID     int64
}
