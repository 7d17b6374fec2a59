package types

// User roles as reported by the auth endpoint.
const (
	RoleAdopter   = "ADOPTER"
	RoleShelter   = "SHELTER"
	RoleVolunteer = "VOLUNTEER"
	RoleAdmin     = "ADMIN"
)

// User is the profile returned on login.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Credentials are the bearer and refresh tokens of an authenticated session.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
