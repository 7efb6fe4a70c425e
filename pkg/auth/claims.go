package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims mirrors the identity provider's access token. Subject
// carries the user id.
type AccessTokenClaims struct {
	Email        string         `json:"email,omitempty"`
	Role         string         `json:"role,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *AccessTokenClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// AccessTokenPayload is what MintAccessToken signs.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	Role   string
}
