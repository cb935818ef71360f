package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ayush/storyhub/backend/internal/models"
	"github.com/ayush/storyhub/backend/internal/store"
)

// TokenVerifier is the part of TokenService the guard depends on.
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}

// UserFinder resolves a token subject to a user.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Guard decides whether a request's bearer token grants access.
type Guard struct {
	tokens TokenVerifier
	users  UserFinder
}

func NewGuard(tokens TokenVerifier, users UserFinder) *Guard {
	return &Guard{tokens: tokens, users: users}
}

// Authenticate runs the checks in order: header present, token valid,
// subject exists, token not older than the last password change. Rejections
// are ErrNoCredential, ErrInvalidToken, ErrUnknownSubject or ErrStaleToken.
// Any other error is a store failure.
func (g *Guard) Authenticate(ctx context.Context, authorization string) (*models.User, error) {
	raw, ok := BearerToken(authorization)
	if !ok {
		return nil, ErrNoCredential
	}

	claims, err := g.tokens.Verify(raw)
	if err != nil {
		return nil, ErrInvalidToken.WithCause(err)
	}

	u, err := g.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownSubject
		}
		return nil, fmt.Errorf("resolve token subject: %w", err)
	}

	if ChangedPasswordAfter(u, claims) {
		return nil, ErrStaleToken
	}
	return u, nil
}

// ChangedPasswordAfter reports whether u's password changed after the token
// was issued. Token timestamps have second resolution, so both sides are
// compared in whole seconds.
func ChangedPasswordAfter(u *models.User, claims Claims) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return claims.IssuedAt.Unix() < u.PasswordChangedAt.Unix()
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
