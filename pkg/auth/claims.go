package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserMetadata is the profile block the identity provider embeds in tokens.
type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
	Name     string `json:"name,omitempty"`
}

// AccessTokenClaims represents the JWT presented by learners. The user id is
// carried in the standard subject claim.
type AccessTokenClaims struct {
	Email        string       `json:"email,omitempty"`
	Role         string       `json:"role,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// UserID parses the subject as a uuid.
func (c *AccessTokenClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(c.Subject))
}

// DisplayName returns the best available human name for the user.
func (c *AccessTokenClaims) DisplayName() string {
	if name := strings.TrimSpace(c.UserMetadata.FullName); name != "" {
		return name
	}
	if name := strings.TrimSpace(c.UserMetadata.Name); name != "" {
		return name
	}
	if at := strings.Index(c.Email, "@"); at > 0 {
		return c.Email[:at]
	}
	return ""
}

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Email    string
	FullName string
}
