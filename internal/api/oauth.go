package api

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"stanza/internal/auth"
	"stanza/internal/config"
	"stanza/internal/db"
	"stanza/internal/models"
)

const (
	stateCookieName = "oauth_state"
	userInfoURL     = "https://www.googleapis.com/oauth2/v2/userinfo"
)

type OAuthHandler struct {
	oauthConfig *oauth2.Config
	users       *db.UserRepository
	tokens      *auth.TokenService
}

func NewOAuthHandler(cfg config.GoogleOAuthConfig, users *db.UserRepository, tokens *auth.TokenService) *OAuthHandler {
	return &OAuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		users:  users,
		tokens: tokens,
	}
}

func (h *OAuthHandler) Enabled() bool {
	return h.oauthConfig.ClientID != "" && h.oauthConfig.ClientSecret != ""
}

// GET /api/v1/auth/google/login
func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		slog.Error("error generating oauth state", "error", err)
		internalError(w)
		return
	}
	state := hex.EncodeToString(stateBytes)

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauthConfig.AuthCodeURL(state), http.StatusFound)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
}

// GET /api/v1/auth/google/callback
// The verified email becomes the username; first login provisions a
// user row with an unguessable placeholder credential.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(r.URL.Query().Get("state"))) != 1 {
		unauthorized(w, "OAuth state mismatch")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	code := r.URL.Query().Get("code")
	if code == "" {
		badRequest(w, "Missing authorization code")
		return
	}

	token, err := h.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("error exchanging oauth code", "error", err)
		unauthorized(w, "Google authentication failed")
		return
	}

	resp, err := h.oauthConfig.Client(r.Context(), token).Get(userInfoURL)
	if err != nil {
		slog.Error("error fetching user info", "error", err)
		unauthorized(w, "Google authentication failed")
		return
	}
	defer resp.Body.Close()

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.Email == "" {
		slog.Error("error decoding user info", "error", err)
		unauthorized(w, "Google authentication failed")
		return
	}

	user, err := h.users.FindByUsername(r.Context(), info.Email)
	if errors.Is(err, db.ErrNotFound) {
		user, err = h.provision(r, info.Email)
	}
	if err != nil {
		slog.Error("error resolving oauth user", "error", err)
		internalError(w)
		return
	}

	sessionToken, _, err := h.tokens.Issue(user.Username, user.IsAdmin)
	if err != nil {
		slog.Error("error issuing session token", "error", err)
		internalError(w)
		return
	}
	setSessionCookie(w, sessionToken, h.tokens.SessionTTL())

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// provision creates the user row backing a first-time federated login.
// OAuth accounts have no password; the stored hash is of a random value
// nobody knows, so the row can never be logged into directly.
func (h *OAuthHandler) provision(r *http.Request, email string) (*models.User, error) {
	placeholder := make([]byte, 32)
	if _, err := rand.Read(placeholder); err != nil {
		return nil, err
	}
	passwordHash, err := auth.HashPassword(hex.EncodeToString(placeholder))
	if err != nil {
		return nil, err
	}

	user, err := h.users.Create(r.Context(), email, passwordHash)
	if errors.Is(err, db.ErrDuplicate) {
		// Lost a race with a concurrent first login.
		return h.users.FindByUsername(r.Context(), email)
	}
	return user, err
}
