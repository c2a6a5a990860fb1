package alert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Topic is one topic that turned Trending.
type Topic struct {
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Tag          string  `json:"tag"`
	Velocity     float64 `json:"velocity"`
	Volume       int64   `json:"volume"`
	VideosCnt    int     `json:"videos_cnt"`
	Freshness    float64 `json:"freshness"`
}

// Notification is the data sent to alert destinations.
type Notification struct {
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	SnapshotTS time.Time `json:"snapshot_ts"`
	Topics     []Topic   `json:"topics"`
}

// maxListed caps the topics rendered into chat messages.
const maxListed = 10

// listed returns the topics shown in chat messages.
func (n *Notification) listed() []Topic {
	if len(n.Topics) > maxListed {
		return n.Topics[:maxListed]
	}
	return n.Topics
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// postJSON posts body and fails on any non-2xx answer.
func postJSON(ctx context.Context, client *http.Client, url string, body []byte, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
