package api

import (
	"errors"
	"log/slog"
	"net/http"

	"stanza/internal/auth"
	"stanza/internal/db"
	"stanza/internal/models"
)

type UserHandler struct {
	users *db.UserRepository
}

func NewUserHandler(users *db.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r)
	if identity == nil {
		unauthorized(w, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

type UpdateProfileRequest struct {
	NewPassword *string `json:"newPassword" validate:"omitempty,min=4"`
	UserData    *string `json:"userData"`
	ShowAllTab  *bool   `json:"showAllTab"`
}

// PATCH /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r)
	if identity == nil {
		unauthorized(w, "Authentication required")
		return
	}

	// Virtual admins have no persisted profile to update.
	if identity.Virtual {
		forbidden(w, "Profile settings are not available for virtual administrators")
		return
	}

	var req UpdateProfileRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	var update db.ProfileUpdate
	if req.NewPassword != nil {
		passwordHash, err := auth.HashPassword(*req.NewPassword)
		if err != nil {
			slog.Error("error hashing password", "error", err)
			internalError(w)
			return
		}
		update.PasswordHash = &passwordHash
	}
	if req.UserData != nil {
		clean := sanitizeText(*req.UserData)
		update.UserData = &clean
	}
	update.ShowAllTab = req.ShowAllTab

	if err := h.users.UpdateProfile(r.Context(), identity.Username, update); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "User not found")
			return
		}
		slog.Error("error updating profile", "error", err)
		internalError(w)
		return
	}

	user, err := h.users.FindByUsername(r.Context(), identity.Username)
	if err != nil {
		slog.Error("error finding user", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, models.IdentityFromUser(user))
}
