package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID       string `json:"id" bson:"id"`
	Username string `json:"username" bson:"username"`
	Email    string `json:"email,omitempty" bson:"email,omitempty"`
	Role     Role   `json:"role" bson:"role"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration mirrors the sign-up form. Avatar is optional.
type Registration struct {
	Username        string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
	AvatarName      string
	Avatar          []byte
}

type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
