package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Discord sends notifications via Discord webhook.
type Discord struct {
	client     *http.Client
	webhookURL string
}

// NewDiscord creates a new Discord notifier.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, n *Notification) error {
	var lines []string
	for _, t := range n.listed() {
		lines = append(lines, fmt.Sprintf("• **#%s** [%s] %.0f views/h, %d videos", t.Tag, t.CategoryName, t.Velocity, t.VideosCnt))
	}

	embed := map[string]any{
		"title":       fmt.Sprintf("🔥 %s", n.Title),
		"description": fmt.Sprintf("%s\n\n%s", n.Body, strings.Join(lines, "\n")),
		"color":       0xFF0000,
		"timestamp":   n.SnapshotTS.UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(map[string]any{"embeds": []map[string]any{embed}})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}
	if err := postJSON(ctx, d.client, d.webhookURL, body, nil); err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	return nil
}
