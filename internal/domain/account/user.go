package account

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/procurehub/portal-client/internal/domain/values"
)

// User is the authenticated principal as served by the profile endpoint.
type User struct {
	ID      string `json:"id"`
	AltID   string `json:"_id,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
	Company string `json:"company,omitempty"`
}

// Normalize coalesces the wire identity fields onto ID. Idempotent.
func (u User) Normalize() User {
	u.ID = values.CoalesceID(u.ID, u.AltID)
	return u
}

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleIssuer Role = "issuer"
	RoleBidder Role = "bidder"
)

func (r Role) String() string { return string(r) }

// Is compares roles case-insensitively; role values are server-controlled
// and arrive in whatever casing the backend prefers.
func (r Role) Is(other Role) bool {
	return strings.EqualFold(string(r), string(other))
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration is the signup payload.
type Registration struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     Role   `json:"role" validate:"required,oneof=admin issuer bidder"`
	Company  string `json:"company,omitempty"`
}

// ProfileUpdate is a partial update of the current user's profile.
type ProfileUpdate struct {
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
}

// AuthResponse is the login/register response. Token may arrive under
// "token" or "accessToken"; the user profile may be omitted entirely, in
// which case the caller fetches it from the profile endpoint.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

func (a *AuthResponse) UnmarshalJSON(data []byte) error {
	var aux struct {
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
		User        *User  `json:"user"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.Token = aux.Token
	if a.Token == "" {
		a.Token = aux.AccessToken
	}
	a.User = aux.User
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the payload before it is sent to the server.
func (c Credentials) Validate() error { return validate.Struct(c) }

// Validate checks the payload before it is sent to the server.
func (r Registration) Validate() error { return validate.Struct(r) }
