// Package notify posts best-effort run notifications to a REST endpoint.
// Notification failures never affect the run outcome.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	apperrors "github.com/playlog/playlog/internal/errors"
)

// Notifier posts messages to <endpoint>/log.
type Notifier struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a Notifier. An empty endpoint disables notifications.
func New(endpoint string) *Notifier {
	return &Notifier{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Post sends a message. Errors are returned for observability but callers
// are expected to log and move on; the orchestrator treats every
// notification failure as non-fatal.
func (n *Notifier) Post(ctx context.Context, message string) error {
	if n.endpoint == "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return apperrors.NewNotifyError("failed to encode message", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint+"/log", bytes.NewReader(body))
	if err != nil {
		return apperrors.NewNotifyError("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return apperrors.NewNotifyError("notification call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return apperrors.NewNotifyError(fmt.Sprintf("notification endpoint returned %d", resp.StatusCode), nil)
	}
	return nil
}

// PostBestEffort sends a message and swallows any failure with a log line.
func (n *Notifier) PostBestEffort(ctx context.Context, message string) {
	if err := n.Post(ctx, message); err != nil {
		log.Printf("Notification failed (ignored): %v", err)
	}
}
