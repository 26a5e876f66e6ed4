package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sekolah-kuliner/api/internal/database"
	"github.com/sekolah-kuliner/api/internal/middleware"
)

// ChildStore defines the database methods needed by child handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ChildStore interface {
	CreateChild(ctx context.Context, arg database.CreateChildParams) (database.Child, error)
	ListChildrenByParent(ctx context.Context, parentID uuid.UUID) ([]database.Child, error)
	GetChild(ctx context.Context, arg database.GetChildParams) (database.Child, error)
	UpdateChild(ctx context.Context, arg database.UpdateChildParams) (database.Child, error)
	DeleteChild(ctx context.Context, arg database.DeleteChildParams) (uuid.UUID, error)
}

// ChildHandler handles child profile CRUD. Every operation is scoped to
// the authenticated parent; other parents' children are indistinguishable
// from missing ones.
type ChildHandler struct {
	store ChildStore
}

// NewChildHandler creates a new ChildHandler.
func NewChildHandler(store ChildStore) *ChildHandler {
	return &ChildHandler{store: store}
}

// RegisterRoutes registers child endpoints on the given Chi router.
func (h *ChildHandler) RegisterRoutes(r chi.Router) {
	r.Get("/children", h.List)
	r.Post("/children", h.Create)
	r.Put("/children/{id}", h.Update)
	r.Delete("/children/{id}", h.Delete)
}

// --- Request / Response types ---

type childRequest struct {
	Name      string `json:"name"`
	ClassName string `json:"class_name"`
	StudentID string `json:"student_id"`
	Allergies string `json:"allergies"`
}

type childResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ClassName string    `json:"class_name"`
	StudentID string    `json:"student_id"`
	Allergies *string   `json:"allergies"`
	CreatedAt time.Time `json:"created_at"`
}

func toChildResponse(c database.Child) childResponse {
	resp := childResponse{
		ID:        c.ID,
		Name:      c.Name,
		ClassName: c.ClassName,
		StudentID: c.StudentID,
		CreatedAt: c.CreatedAt,
	}
	if c.Allergies.Valid {
		resp.Allergies = &c.Allergies.String
	}
	return resp
}

// --- Handlers ---

// List returns the authenticated parent's children.
func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	children, err := h.store.ListChildrenByParent(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list children: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]childResponse, len(children))
	for i, c := range children {
		resp[i] = toChildResponse(c)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create adds a child profile for the authenticated parent.
func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req childRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.ClassName = strings.TrimSpace(req.ClassName)
	if req.Name == "" || req.ClassName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and class_name are required"})
		return
	}

	allergies := pgtype.Text{}
	if req.Allergies != "" {
		allergies = pgtype.Text{String: req.Allergies, Valid: true}
	}

	child, err := h.store.CreateChild(r.Context(), database.CreateChildParams{
		ParentID:  claims.UserID,
		Name:      req.Name,
		ClassName: req.ClassName,
		StudentID: strings.TrimSpace(req.StudentID),
		Allergies: allergies,
	})
	if err != nil {
		log.Printf("ERROR: create child: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toChildResponse(child))
}

// Update modifies a child profile owned by the authenticated parent.
func (h *ChildHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	childID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid child ID"})
		return
	}

	var req childRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.ClassName = strings.TrimSpace(req.ClassName)
	if req.Name == "" || req.ClassName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and class_name are required"})
		return
	}

	allergies := pgtype.Text{}
	if req.Allergies != "" {
		allergies = pgtype.Text{String: req.Allergies, Valid: true}
	}

	child, err := h.store.UpdateChild(r.Context(), database.UpdateChildParams{
		ID:        childID,
		ParentID:  claims.UserID,
		Name:      req.Name,
		ClassName: req.ClassName,
		StudentID: strings.TrimSpace(req.StudentID),
		Allergies: allergies,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
			return
		}
		log.Printf("ERROR: update child: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toChildResponse(child))
}

// Delete removes a child profile owned by the authenticated parent.
func (h *ChildHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	childID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid child ID"})
		return
	}

	if _, err := h.store.DeleteChild(r.Context(), database.DeleteChildParams{
		ID:       childID,
		ParentID: claims.UserID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
			return
		}
		log.Printf("ERROR: delete child: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
