package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"stanza/internal/db"
	"stanza/internal/models"
)

type AdminHandler struct {
	poems *db.PoemRepository
}

func NewAdminHandler(poems *db.PoemRepository) *AdminHandler {
	return &AdminHandler{poems: poems}
}

type PoemRequest struct {
	Title  string `json:"title" validate:"required,max=512"`
	Author string `json:"author" validate:"required,max=254"`
	Text   string `json:"text" validate:"required"`
}

func (req *PoemRequest) toPoem() (*models.Poem, error) {
	poem := &models.Poem{
		Title:  strings.TrimSpace(sanitizeText(req.Title)),
		Author: strings.TrimSpace(sanitizeText(req.Author)),
		Text:   sanitizeText(req.Text),
	}
	if poem.Title == "" || poem.Author == "" || strings.TrimSpace(poem.Text) == "" {
		return nil, fmt.Errorf("title, author and text are all required")
	}
	poem.Normalize()
	return poem, nil
}

// GET /api/v1/admin/poems
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	poems, err := h.poems.FindAll(r.Context())
	if err != nil {
		slog.Error("error listing poems", "error", err)
		internalError(w)
		return
	}
	if poems == nil {
		poems = []*models.Poem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"poems": poems})
}

// POST /api/v1/admin/poems
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req PoemRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	poem, err := req.toPoem()
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.poems.Create(r.Context(), poem); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			conflict(w, fmt.Sprintf("A poem titled %q already exists", poem.Title))
			return
		}
		slog.Error("error creating poem", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, poem)
}

// PUT /api/v1/admin/poems/{title}
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	originalTitle := chi.URLParam(r, "title")

	var req PoemRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	poem, err := req.toPoem()
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	exists, err := h.poems.Exists(r.Context(), originalTitle)
	if err != nil {
		slog.Error("error checking poem existence", "error", err)
		internalError(w)
		return
	}
	if !exists {
		notFound(w, "Poem not found")
		return
	}

	if err := h.poems.Update(r.Context(), originalTitle, poem); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			conflict(w, fmt.Sprintf("A poem titled %q already exists", poem.Title))
			return
		}
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Poem not found")
			return
		}
		slog.Error("error updating poem", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, poem)
}

// DELETE /api/v1/admin/poems/{title}
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	title := chi.URLParam(r, "title")

	if err := h.poems.Delete(r.Context(), title); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w, "Poem not found")
			return
		}
		slog.Error("error deleting poem", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Poem %q deleted", title)})
}
