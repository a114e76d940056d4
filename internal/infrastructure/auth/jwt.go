// Package auth verifies bearer tokens carrying the organization scope.
package auth

import (
	"errors"
	"time"

	"github.com/catalogmirror/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidToken           = errors.New("invalid token")
	ErrExpiredToken           = errors.New("token has expired")
	ErrTokenNotYetValid       = errors.New("token is not yet valid")
	ErrMissingOrganizationID  = errors.New("missing organization_id in claims")
	ErrInvalidOrganizationID  = errors.New("organization_id claim is not a UUID")
	ErrInvalidActorID         = errors.New("actor_id claim is not a UUID")
	ErrVerificationNotEnabled = errors.New("token verification is not configured")
)

// Claims are the bearer token claims read by the API
type Claims struct {
	jwt.RegisteredClaims
	OrganizationID string `json:"organization_id"`
	ActorID        string `json:"actor_id,omitempty"`
}

// Organization returns the parsed organization claim
func (c *Claims) Organization() uuid.UUID {
	id, _ := uuid.Parse(c.OrganizationID)
	return id
}

// Actor returns the parsed actor claim, nil when absent
func (c *Claims) Actor() *uuid.UUID {
	if c.ActorID == "" {
		return nil
	}
	id, err := uuid.Parse(c.ActorID)
	if err != nil {
		return nil
	}
	return &id
}

// TokenVerifier checks HS256 tokens signed with the shared secret
type TokenVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenVerifier creates a verifier from configuration. It returns nil when
// no secret is configured, in which case callers fall back to headers.
func NewTokenVerifier(cfg config.JWTConfig) *TokenVerifier {
	if cfg.Secret == "" {
		return nil
	}
	return &TokenVerifier{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

// Issue signs a token for the organization. Used by operators and tests.
func (v *TokenVerifier) Issue(organizationID uuid.UUID, actorID *uuid.UUID, ttl time.Duration) (string, error) {
	if v == nil {
		return "", ErrVerificationNotEnabled
	}
	now := v.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		OrganizationID: organizationID.String(),
	}
	if actorID != nil {
		claims.ActorID = actorID.String()
		claims.Subject = claims.ActorID
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses the token and validates its organization scope
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	if v == nil {
		return nil, ErrVerificationNotEnabled
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.OrganizationID == "" {
		return nil, ErrMissingOrganizationID
	}
	if _, err := uuid.Parse(claims.OrganizationID); err != nil {
		return nil, ErrInvalidOrganizationID
	}
	if claims.ActorID != "" {
		if _, err := uuid.Parse(claims.ActorID); err != nil {
			return nil, ErrInvalidActorID
		}
	}
	return claims, nil
}
