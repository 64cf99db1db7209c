package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"stanza/internal/auth"
	"stanza/internal/db"
)

type AuthHandler struct {
	users   *db.UserRepository
	tokens  *auth.TokenService
	admins  *auth.VirtualAdminRegistry
	checker *auth.Authenticator
}

func NewAuthHandler(
	users *db.UserRepository,
	tokens *auth.TokenService,
	admins *auth.VirtualAdminRegistry,
	checker *auth.Authenticator,
) *AuthHandler {
	return &AuthHandler{
		users:   users,
		tokens:  tokens,
		admins:  admins,
		checker: checker,
	}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=4"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=254"`
	Password string `json:"password" validate:"required"`
}

type SessionResponse struct {
	Username  string `json:"username"`
	IsAdmin   bool   `json:"isAdmin"`
	ExpiresAt string `json:"expiresAt"`
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		badRequest(w, "username is required")
		return
	}

	// Virtual admin names are reserved for operators.
	if h.admins.IsVirtualAdmin(username) {
		conflict(w, "Username already taken")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("error hashing password", "error", err)
		internalError(w)
		return
	}

	if _, err := h.users.Create(r.Context(), username, passwordHash); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			conflict(w, "Username already taken")
			return
		}
		slog.Error("error creating user", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "Registration successful"})
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	username := strings.TrimSpace(req.Username)

	// Virtual admins take precedence over persisted rows with the same
	// name and are never looked up in the store.
	if h.admins.IsVirtualAdmin(username) {
		if !h.admins.CheckCredentials(username, req.Password) {
			writeError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid username or password")
			return
		}
		h.issueSession(w, username, true)
		return
	}

	user, err := h.users.FindByUsername(r.Context(), username)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid username or password")
		return
	}
	if err != nil {
		slog.Error("error finding user", "error", err)
		internalError(w)
		return
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid username or password")
		return
	}

	h.issueSession(w, user.Username, user.IsAdmin)
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, username string, isAdmin bool) {
	token, expiresAt, err := h.tokens.Issue(username, isAdmin)
	if err != nil {
		slog.Error("error issuing session token", "error", err)
		internalError(w)
		return
	}

	setSessionCookie(w, token, h.tokens.SessionTTL())
	writeJSON(w, http.StatusOK, SessionResponse{
		Username:  username,
		IsAdmin:   isAdmin,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}
