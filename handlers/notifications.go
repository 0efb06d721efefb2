package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"taskboard/database"
	"taskboard/notify"
)

// NotificationsHandler wraps the bucketing engine behind the
// notifications endpoint.
type NotificationsHandler struct {
	store         *database.Store
	enabled       bool
	lookaheadDays int
}

func NewNotificationsHandler(store *database.Store, enabled bool, lookaheadDays int) *NotificationsHandler {
	if lookaheadDays <= 0 {
		lookaheadDays = 7
	}
	return &NotificationsHandler{
		store:         store,
		enabled:       enabled,
		lookaheadDays: lookaheadDays,
	}
}

// GetTaskNotifications returns the owner's overdue / due-today /
// upcoming buckets with counts. Results are owner-specific and
// time-sensitive, so every caching layer is told to stay out of the way.
func (h *NotificationsHandler) GetTaskNotifications(w http.ResponseWriter, r *http.Request) {
	owner, ok := OwnerFromContext(r.Context())
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	// Accepted for wire compatibility; there is no read-tracking store,
	// so every call reports the full buckets.
	_ = r.URL.Query().Get("ignoreRead") == "true"

	tasks, err := h.store.ListTasks(r.Context(), owner, false)
	if err != nil {
		log.Printf("Error listing tasks for notifications: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	set, dropped := notify.Bucket(tasks, time.Now(), h.lookaheadDays, owner)
	if dropped > 0 {
		log.Printf("Notifications for %s: dropped %d tasks with mismatched owner", owner, dropped)
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"enabled":       h.enabled,
		"overdueCount":  len(set.Overdue),
		"dueTodayCount": len(set.DueToday),
		"upcomingCount": len(set.Upcoming),
		"totalCount":    set.Total(),
		"tasks":         set,
	})
}
