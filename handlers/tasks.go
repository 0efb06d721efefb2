package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"taskboard/board"
	"taskboard/database"
	"taskboard/services"
)

// TasksHandler serves the task endpoints, including the bulk
// reconciliation route the board's drag-and-drop relies on.
type TasksHandler struct {
	store *database.Store
	hub   *services.Hub
}

func NewTasksHandler(store *database.Store, hub *services.Hub) *TasksHandler {
	return &TasksHandler{
		store: store,
		hub:   hub,
	}
}

type bulkUpdateItem struct {
	ID        int64   `json:"id"`
	Column    *string `json:"kanban_column"`
	Order     *int    `json:"kanban_order"`
	Completed *bool   `json:"completed"`
}

func (i bulkUpdateItem) patch() board.Patch {
	return board.Patch{ID: i.ID, Column: i.Column, Order: i.Order, Completed: i.Completed}
}

// GetTasks returns the owner's tasks. Completed tasks are included only
// with ?all=true; the board uses all=true to build its initial snapshot.
func (h *TasksHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	owner, ok := OwnerFromContext(r.Context())
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	all := r.URL.Query().Get("all") == "true"
	tasks, err := h.store.ListTasks(r.Context(), owner, all)
	if err != nil {
		log.Printf("Error listing tasks: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []board.Task{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"tasks": tasks,
	})
}

// BulkUpdate applies a batch of partial updates. Each item is its own
// unit of work: a stale or foreign id is swallowed per-item and only
// the success count is reported, so one bad item cannot block the rest.
func (h *TasksHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	owner, ok := OwnerFromContext(r.Context())
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	var req struct {
		Updates []bulkUpdateItem `json:"updates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	patches := make([]board.Patch, 0, len(req.Updates))
	for _, item := range req.Updates {
		patches = append(patches, item.patch())
	}

	applied, results := h.store.ApplyBatch(r.Context(), owner, patches)
	for _, res := range results {
		if !res.OK() {
			log.Printf("Bulk update for %s: task %d skipped: %v", owner, res.ID, res.Err)
		}
	}

	if applied > 0 && h.hub != nil {
		h.hub.NotifyOwner(owner, services.BoardEvent{Type: "tasks", Updated: applied})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"updated": applied,
	})
}

// UpdateTask applies a single-task patch, e.g. toggling completion.
func (h *TasksHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := OwnerFromContext(r.Context())
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid task id", http.StatusBadRequest)
		return
	}

	var item bulkUpdateItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	item.ID = id

	if err := h.store.ApplyPatch(r.Context(), owner, item.patch()); err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			http.Error(w, "Task not found", http.StatusNotFound)
		case errors.Is(err, database.ErrUnknownColumn):
			http.Error(w, "Unknown column key", http.StatusBadRequest)
		default:
			log.Printf("Error patching task %d: %v", id, err)
			http.Error(w, "Server error", http.StatusInternalServerError)
		}
		return
	}

	task, err := h.store.GetTask(r.Context(), owner, id)
	if err != nil {
		log.Printf("Error reloading task %d: %v", id, err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	if h.hub != nil {
		h.hub.NotifyOwner(owner, services.BoardEvent{Type: "tasks", Updated: 1})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"task": task,
	})
}

// CreateTask adds a task at the end of its column.
func (h *TasksHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := OwnerFromContext(r.Context())
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	var req struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		DueDate     *time.Time `json:"dueDate"`
		Priority    int        `json:"priority"`
		Column      string     `json:"kanban_column"`
		ProjectID   *int64     `json:"projectId"`
		Labels      []string   `json:"labels"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	task, err := h.store.CreateTask(r.Context(), board.Task{
		OwnerID:     owner,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		Column:      req.Column,
		ProjectID:   req.ProjectID,
		Labels:      req.Labels,
	})
	if err != nil {
		if errors.Is(err, database.ErrUnknownColumn) {
			http.Error(w, "Unknown column key", http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.hub != nil {
		h.hub.NotifyOwner(owner, services.BoardEvent{Type: "tasks", Updated: 1})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"task": task,
	})
}

// DeleteTask removes a task.
func (h *TasksHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := OwnerFromContext(r.Context())
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid task id", http.StatusBadRequest)
		return
	}

	if err := h.store.DeleteTask(r.Context(), owner, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Task not found", http.StatusNotFound)
			return
		}
		log.Printf("Error deleting task %d: %v", id, err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	if h.hub != nil {
		h.hub.NotifyOwner(owner, services.BoardEvent{Type: "tasks", Updated: 1})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "deleted",
	})
}
