package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Slack sends notifications via Slack incoming webhook.
type Slack struct {
	client     *http.Client
	webhookURL string
}

// NewSlack creates a new Slack notifier.
func NewSlack(webhookURL string) *Slack {
	return &Slack{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Send(ctx context.Context, n *Notification) error {
	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{
				"type": "plain_text",
				"text": fmt.Sprintf("🔥 %s", n.Title),
			},
		},
		{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Snapshot:* %s | *Topics:* %d\n%s",
					n.SnapshotTS.UTC().Format(time.RFC3339), len(n.Topics), n.Body),
			},
		},
	}

	if topics := n.listed(); len(topics) > 0 {
		var lines []string
		for _, t := range topics {
			lines = append(lines, fmt.Sprintf("*#%s* in %s: %.0f views/h, %d videos, %.0f%% fresh",
				t.Tag, t.CategoryName, t.Velocity, t.VideosCnt, t.Freshness*100))
		}
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": strings.Join(lines, "\n"),
			},
		})
	}

	body, err := json.Marshal(map[string]any{"blocks": blocks})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	if err := postJSON(ctx, s.client, s.webhookURL, body, nil); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}
