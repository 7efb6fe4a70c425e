package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/withmetravel/withme-backend/pkg/config"
)

const defaultProviderRole = "authenticated"

var jwtSigningMethod = jwt.SigningMethodHS256

var ErrMissingSubject = errors.New("token subject is missing or not a uuid")

// ParseAccessToken verifies an HS256 provider token and returns its claims.
// Issuer and audience are enforced only when configured.
func ParseAccessToken(cfg config.AuthConfig, tokenString string) (*AccessTokenClaims, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(cfg.JWTAudience))
	}

	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

// MintAccessToken signs a provider-compatible token. The API never issues
// tokens itself; this backs tests and the local dev tooling.
func MintAccessToken(cfg config.AuthConfig, now time.Time, ttl time.Duration, payload AccessTokenPayload) (string, error) {
	if cfg.JWTSecret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if payload.UserID == uuid.Nil {
		return "", fmt.Errorf("user id is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}

	role := payload.Role
	if role == "" {
		role = defaultProviderRole
	}

	registered := jwt.RegisteredClaims{
		Subject:   payload.UserID.String(),
		Issuer:    cfg.JWTIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	if cfg.JWTAudience != "" {
		registered.Audience = jwt.ClaimStrings{cfg.JWTAudience}
	}

	token := jwt.NewWithClaims(jwtSigningMethod, AccessTokenClaims{
		Email:            payload.Email,
		Role:             role,
		RegisteredClaims: registered,
	})
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}
