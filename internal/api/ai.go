package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"stanza/internal/db"
	"stanza/internal/keys"
	"stanza/internal/models"
)

// chatHistoryWindow is how many recent turns are replayed to the model.
const chatHistoryWindow = 20

// TextGenerator produces a reply to a prompt given the ordered chat
// history.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, history []*models.ChatMessage) (string, error)
}

type AIHandler struct {
	keys      *keys.Service
	users     *db.UserRepository
	chats     *db.ChatMessageRepository
	generator TextGenerator
}

func NewAIHandler(
	keyService *keys.Service,
	users *db.UserRepository,
	chats *db.ChatMessageRepository,
	generator TextGenerator,
) *AIHandler {
	return &AIHandler{
		keys:      keyService,
		users:     users,
		chats:     chats,
		generator: generator,
	}
}

type GenerateKeyRequest struct {
	ExpiresInHours int   `json:"expiresInHours" validate:"omitempty,gt=0"`
	DailyLimit     int64 `json:"dailyLimit" validate:"omitempty,gt=0"`
}

type GenerateKeyResponse struct {
	Key string `json:"key"`
}

// POST /api/v1/ai/keys (admin)
func (h *AIHandler) GenerateKey(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r)
	if identity == nil {
		unauthorized(w, "Authentication required")
		return
	}

	var req GenerateKeyRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	var expiresAt *time.Time
	if req.ExpiresInHours > 0 {
		t := time.Now().UTC().Add(time.Duration(req.ExpiresInHours) * time.Hour)
		expiresAt = &t
	}
	var dailyLimit *int64
	if req.DailyLimit > 0 {
		dailyLimit = &req.DailyLimit
	}

	key, err := h.keys.Issue(r.Context(), identity.Username, expiresAt, dailyLimit)
	if err != nil {
		slog.Error("error issuing access key", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, GenerateKeyResponse{Key: key})
}

// GET /api/v1/ai/keys (admin)
func (h *AIHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r)
	if identity == nil {
		unauthorized(w, "Authentication required")
		return
	}

	list, err := h.keys.ListForIssuer(r.Context(), identity.Username)
	if err != nil {
		slog.Error("error listing access keys", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"keys": list})
}

// DELETE /api/v1/ai/keys/{key} (admin)
func (h *AIHandler) DisableKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := h.keys.Disable(r.Context(), key); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Key not found")
			return
		}
		slog.Error("error disabling access key", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Key disabled"})
}

type VerifyKeyRequest struct {
	Key string `json:"key" validate:"required,max=254"`
}

// POST /api/v1/ai/verify-key
// Validates a key and saves it on the calling user's record.
func (h *AIHandler) VerifyKey(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r)
	if identity == nil {
		unauthorized(w, "Authentication required")
		return
	}

	var req VerifyKeyRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if !h.keys.Validate(r.Context(), req.Key) {
		writeError(w, http.StatusForbidden, ErrCodeAccessDenied, "Invalid or expired key")
		return
	}

	if identity.Virtual {
		// Virtual admins already have access and have no row to save to.
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	if err := h.users.SetAccessKey(r.Context(), identity.Username, req.Key); err != nil {
		slog.Error("error saving access key", "error", err, "username", identity.Username)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type ChatRequest struct {
	Prompt string `json:"prompt" validate:"required,max=8192"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

// POST /api/v1/ai/chat
// Admins always have access; everyone else needs a saved, still-valid
// access key.
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r)
	if identity == nil {
		unauthorized(w, "Authentication required")
		return
	}

	var req ChatRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if !identity.IsAdmin {
		if identity.AccessKey == "" || !h.keys.Validate(r.Context(), identity.AccessKey) {
			writeError(w, http.StatusForbidden, ErrCodeAccessDenied,
				"AI access requires a valid key; enter one in your profile")
			return
		}
	}

	history, err := h.chats.History(r.Context(), identity.Username, chatHistoryWindow)
	if err != nil {
		slog.Error("error loading chat history", "error", err, "username", identity.Username)
		internalError(w)
		return
	}

	reply, err := h.generator.Generate(r.Context(), req.Prompt, history)
	if err != nil {
		slog.Error("error calling text generator", "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeInternal, "The AI backend is unavailable")
		return
	}

	// History writes are best effort; a reply the user already paid a
	// generation for is not discarded over a bookkeeping failure.
	if _, err := h.chats.Append(r.Context(), identity.Username, models.ChatRoleUser, req.Prompt); err != nil {
		slog.Error("error saving chat prompt", "error", err, "username", identity.Username)
	}
	if _, err := h.chats.Append(r.Context(), identity.Username, models.ChatRoleModel, reply); err != nil {
		slog.Error("error saving chat reply", "error", err, "username", identity.Username)
	}

	writeJSON(w, http.StatusOK, ChatResponse{Response: reply})
}
