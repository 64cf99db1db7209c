package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stanza/internal/db"
	"stanza/internal/models"
)

var (
	// ErrUnauthenticated covers every failed resolution: missing,
	// malformed or expired tokens and unknown subjects alike, so callers
	// cannot distinguish which usernames exist.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// UserSource is the persisted side of identity resolution.
type UserSource interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type Authenticator struct {
	tokens *TokenService
	admins *VirtualAdminRegistry
	users  UserSource
}

func NewAuthenticator(tokens *TokenService, admins *VirtualAdminRegistry, users UserSource) *Authenticator {
	return &Authenticator{tokens: tokens, admins: admins, users: users}
}

// Authenticate resolves a session cookie value to an identity. Virtual
// admins take precedence over persisted rows with the same name and are
// never looked up in the store. The admin flag always comes from the
// registry or the persisted row, not from the token.
func (a *Authenticator) Authenticate(ctx context.Context, cookieValue string) (*models.Identity, error) {
	if cookieValue == "" {
		return nil, ErrUnauthenticated
	}

	tokenString := strings.TrimPrefix(cookieValue, "Bearer ")
	claims, err := a.tokens.Decode(tokenString)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	if identity := a.admins.Snapshot(claims.Subject); identity != nil {
		return identity, nil
	}

	user, err := a.users.FindByUsername(ctx, claims.Subject)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("resolving session subject: %w", err)
	}

	return models.IdentityFromUser(user), nil
}

// RequireAdmin gates privileged operations on the resolved identity.
func RequireAdmin(identity *models.Identity) error {
	if identity == nil {
		return ErrUnauthenticated
	}
	if !identity.IsAdmin {
		return ErrForbidden
	}
	return nil
}
