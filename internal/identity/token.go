package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/splitwarden/splitwarden/internal/common"
)

var (
	// ErrInvalidToken indicates the token failed signature or expiry checks.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrMissingEmail indicates the token carries no email claim. Such a
	// token can never be attributed to a member, so it is rejected
	// rather than mapped to an anonymous identity.
	ErrMissingEmail = errors.New("token has no email claim")
)

// Claims are the JWT claims splitwarden understands.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenProvider validates HMAC-signed JWTs issued by the companion
// identity service.
type TokenProvider struct {
	secretKey   []byte
	adminEmails []string
}

// NewTokenProvider creates a provider that accepts tokens signed with
// secretKey. adminEmails lists the members who may review and apply.
func NewTokenProvider(secretKey string, adminEmails []string) (*TokenProvider, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("token secret: %w", common.ErrMissingConfig)
	}
	return &TokenProvider{
		secretKey:   []byte(secretKey),
		adminEmails: adminEmails,
	}, nil
}

// Authenticate parses and validates a JWT, returning the caller's
// identity. A token without an email claim is a hard failure.
func (p *TokenProvider) Authenticate(_ context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return nil, common.ErrUnauthorized
	}

	token, err := jwt.ParseWithClaims(
		credential,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return p.secretKey, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if normalizeEmail(claims.Email) == "" {
		return nil, ErrMissingEmail
	}

	return &Identity{
		Email:   normalizeEmail(claims.Email),
		Name:    claims.Name,
		IsAdmin: isAdminEmail(claims.Email, p.adminEmails),
	}, nil
}

// StaticProvider trusts the credential as a bare email address. It
// exists for local development and tests where no identity service is
// running.
type StaticProvider struct {
	adminEmails []string
}

// NewStaticProvider creates a provider that treats credentials as emails.
func NewStaticProvider(adminEmails []string) *StaticProvider {
	return &StaticProvider{adminEmails: adminEmails}
}

// Authenticate implements Provider.
func (p *StaticProvider) Authenticate(_ context.Context, credential string) (*Identity, error) {
	email := normalizeEmail(credential)
	if email == "" {
		return nil, ErrMissingEmail
	}
	return &Identity{
		Email:   email,
		IsAdmin: isAdminEmail(email, p.adminEmails),
	}, nil
}
