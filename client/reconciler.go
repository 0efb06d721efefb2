package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"taskboard/board"
)

// Reconciler submits patches to the server's bulk reconciliation
// endpoint and reports how many were accepted. The server swallows
// per-item failures, so applied may be less than len(patches) on a
// successful call.
type Reconciler interface {
	ApplyBatch(ctx context.Context, patches []board.Patch) (applied int, err error)
}

const defaultReconcileTimeout = 10 * time.Second

// HTTPReconciler talks to PATCH /api/tasks/bulk. A call that does not
// complete within the client timeout fails, so the caller re-queues the
// patch instead of leaving it pending indefinitely.
type HTTPReconciler struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPReconciler(baseURL, token string, timeout time.Duration) *HTTPReconciler {
	if timeout <= 0 {
		timeout = defaultReconcileTimeout
	}
	return &HTTPReconciler{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *HTTPReconciler) ApplyBatch(ctx context.Context, patches []board.Patch) (int, error) {
	body, err := json.Marshal(map[string]any{"updates": patches})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal updates: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, r.baseURL+"/api/tasks/bulk", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("bulk update failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("bulk update returned status %d", resp.StatusCode)
	}

	var result struct {
		Updated int `json:"updated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Updated, nil
}
