package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"taskboard/board"
	"taskboard/database"
)

// ColumnsHandler serves column management endpoints.
type ColumnsHandler struct {
	store *database.Store
}

func NewColumnsHandler(store *database.Store) *ColumnsHandler {
	return &ColumnsHandler{store: store}
}

// GetColumns lists all board columns in display order.
func (h *ColumnsHandler) GetColumns(w http.ResponseWriter, r *http.Request) {
	columns, err := h.store.ListColumns(r.Context())
	if err != nil {
		log.Printf("Error listing columns: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	if columns == nil {
		columns = []board.Column{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"columns": columns,
	})
}

// CreateColumn adds a user-defined column.
func (h *ColumnsHandler) CreateColumn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key          string `json:"key"`
		Title        string `json:"title"`
		DisplayOrder int    `json:"displayOrder"`
		Color        string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	column, err := h.store.CreateColumn(r.Context(), board.Column{
		Key:          req.Key,
		Title:        req.Title,
		DisplayOrder: req.DisplayOrder,
		Color:        req.Color,
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicateColumn) {
			http.Error(w, "Column key already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"column": column,
	})
}

// UpdateColumn changes a column's title, color or display order.
func (h *ColumnsHandler) UpdateColumn(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req struct {
		Title        *string `json:"title"`
		Color        *string `json:"color"`
		DisplayOrder *int    `json:"displayOrder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	column, err := h.store.UpdateColumn(r.Context(), key, req.Title, req.Color, req.DisplayOrder)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrColumnNotFound):
			http.Error(w, "Column not found", http.StatusNotFound)
		case errors.Is(err, database.ErrDefaultColumn):
			http.Error(w, "Default columns cannot be renamed", http.StatusForbidden)
		default:
			log.Printf("Error updating column %q: %v", key, err)
			http.Error(w, "Server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"column": column,
	})
}

// DeleteColumn removes an empty, non-default column. Deleting a column
// that still holds tasks is a reported error.
func (h *ColumnsHandler) DeleteColumn(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	if err := h.store.DeleteColumn(r.Context(), key); err != nil {
		switch {
		case errors.Is(err, database.ErrColumnNotFound):
			http.Error(w, "Column not found", http.StatusNotFound)
		case errors.Is(err, database.ErrDefaultColumn):
			http.Error(w, "Default columns cannot be deleted", http.StatusForbidden)
		case errors.Is(err, database.ErrColumnNotEmpty):
			http.Error(w, "Column still has tasks", http.StatusConflict)
		default:
			log.Printf("Error deleting column %q: %v", key, err)
			http.Error(w, "Server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "deleted",
	})
}
