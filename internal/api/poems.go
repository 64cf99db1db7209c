package api

import (
	"log/slog"
	"net/http"

	"stanza/internal/auth"
	"stanza/internal/db"
	"stanza/internal/models"
)

type PoemHandler struct {
	poems  *db.PoemRepository
	users  *db.UserRepository
	admins *auth.VirtualAdminRegistry
}

func NewPoemHandler(poems *db.PoemRepository, users *db.UserRepository, admins *auth.VirtualAdminRegistry) *PoemHandler {
	return &PoemHandler{poems: poems, users: users, admins: admins}
}

type PoemListResponse struct {
	Poems       []*models.Poem `json:"poems"`
	ReadPoems   []string       `json:"readPoems"`
	PinnedTitle *string        `json:"pinnedTitle,omitempty"`
	IsAdmin     bool           `json:"isAdmin"`
	ShowAllTab  bool           `json:"showAllTab"`
}

// GET /api/v1/poems
// Anonymous callers get the collection; authenticated callers also get
// their reading state.
func (h *PoemHandler) List(w http.ResponseWriter, r *http.Request) {
	poems, err := h.poems.FindAll(r.Context())
	if err != nil {
		slog.Error("error listing poems", "error", err)
		internalError(w)
		return
	}
	if poems == nil {
		poems = []*models.Poem{}
	}

	resp := PoemListResponse{
		Poems:     poems,
		ReadPoems: []string{},
	}
	if identity := GetIdentity(r); identity != nil {
		resp.ReadPoems = identity.ReadPoems
		resp.PinnedTitle = identity.PinnedTitle
		resp.IsAdmin = identity.IsAdmin
		resp.ShowAllTab = identity.ShowAllTab
	}

	writeJSON(w, http.StatusOK, resp)
}

type ToggleRequest struct {
	Title string `json:"title" validate:"required,max=512"`
}

type ToggleReadResponse struct {
	Action string `json:"action"`
}

type TogglePinResponse struct {
	Action      string  `json:"action"`
	PinnedTitle *string `json:"pinnedTitle"`
}

// POST /api/v1/poems/toggle-read
func (h *PoemHandler) ToggleRead(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r)
	if identity == nil {
		unauthorized(w, "Authentication required")
		return
	}

	var req ToggleRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if identity.Virtual {
		action := h.admins.ToggleRead(identity.Username, req.Title)
		writeJSON(w, http.StatusOK, ToggleReadResponse{Action: action})
		return
	}

	if !h.requirePoem(w, r, req.Title) {
		return
	}

	action, readPoems := models.ToggleRead(identity.ReadPoems, req.Title)
	if err := h.users.SetReadPoems(r.Context(), identity.Username, readPoems); err != nil {
		slog.Error("error updating read poems", "error", err, "username", identity.Username)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, ToggleReadResponse{Action: action})
}

// POST /api/v1/poems/toggle-pin
func (h *PoemHandler) TogglePin(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r)
	if identity == nil {
		unauthorized(w, "Authentication required")
		return
	}

	var req ToggleRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if identity.Virtual {
		action, pinned := h.admins.TogglePin(identity.Username, req.Title)
		writeJSON(w, http.StatusOK, TogglePinResponse{Action: action, PinnedTitle: pinned})
		return
	}

	if !h.requirePoem(w, r, req.Title) {
		return
	}

	action, pinned := models.TogglePin(identity.PinnedTitle, req.Title)
	if err := h.users.SetPinnedTitle(r.Context(), identity.Username, pinned); err != nil {
		slog.Error("error updating pinned title", "error", err, "username", identity.Username)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, TogglePinResponse{Action: action, PinnedTitle: pinned})
}

func (h *PoemHandler) requirePoem(w http.ResponseWriter, r *http.Request, title string) bool {
	exists, err := h.poems.Exists(r.Context(), title)
	if err != nil {
		slog.Error("error checking poem existence", "error", err)
		internalError(w)
		return false
	}
	if !exists {
		notFound(w, "Poem not found")
		return false
	}
	return true
}
