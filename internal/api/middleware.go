package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"stanza/internal/auth"
	"stanza/internal/models"
)

type contextKey string

const identityKey contextKey = "identity"

// sessionCookieName carries the bearer-prefixed signed session token.
const sessionCookieName = "access_token"

type SessionMiddleware struct {
	authenticator *auth.Authenticator
}

func NewSessionMiddleware(authenticator *auth.Authenticator) *SessionMiddleware {
	return &SessionMiddleware{authenticator: authenticator}
}

// LoadIdentity resolves the session cookie when one is present and
// stores the identity on the request context. A cookie that fails to
// resolve is cleared on the response; the request continues
// unauthenticated so optional-auth routes keep working.
func (m *SessionMiddleware) LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := m.authenticator.Authenticate(r.Context(), cookie.Value)
		if errors.Is(err, auth.ErrUnauthenticated) {
			clearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			slog.Error("error resolving session", "error", err)
			internalError(w)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetIdentity(r) == nil {
			unauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentity(r)
		if identity == nil {
			unauthorized(w, "Authentication required")
			return
		}
		if err := auth.RequireAdmin(identity); err != nil {
			forbidden(w, "Administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetIdentity(r *http.Request) *models.Identity {
	if v := r.Context().Value(identityKey); v != nil {
		if identity, ok := v.(*models.Identity); ok {
			return identity
		}
	}
	return nil
}

func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "Bearer " + token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
