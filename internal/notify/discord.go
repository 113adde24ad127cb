package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DiscordSender posts reports to a Discord webhook
type DiscordSender struct {
	webhookURL string
	httpClient *http.Client
}

// NewDiscordSender creates a new Discord sender
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the report as a single embed
func (s *DiscordSender) Send(ctx context.Context, report *Report) error {
	body, err := json.Marshal(map[string]interface{}{
		"embeds": []interface{}{buildEmbed(report)},
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}

func buildEmbed(report *Report) map[string]interface{} {
	var title string
	var color int
	switch report.Severity() {
	case SeverityAlert:
		title = fmt.Sprintf("🚨 %s failed", report.Job)
		color = 0xFF0000
	case SeverityWarn:
		title = fmt.Sprintf("⚠️ %s finished with failures", report.Job)
		color = 0xFFA500
	default:
		title = fmt.Sprintf("✅ %s complete", report.Job)
		color = 0x2ECC71
	}

	var fields []map[string]interface{}
	if c := report.Capture; c != nil {
		fields = append(fields,
			field("Extracted", fmt.Sprintf("%d", c.Extracted)),
			field("Skipped", fmt.Sprintf("%d", c.Skipped)),
			field("Failed", fmt.Sprintf("%d", c.Failed)),
			field("Timestamps", fmt.Sprintf("%d", c.Total)),
			field("Events", fmt.Sprintf("%d", c.Events)),
			field("Duration", c.Duration.Round(time.Second).String()),
		)
	}
	if l := report.Load; l != nil {
		if l.Skipped {
			fields = append(fields, field("Skipped", fmt.Sprintf("table already has %d rows", l.ExistingRows)))
		} else {
			fields = append(fields,
				field("Files", fmt.Sprintf("%d", l.Files)),
				field("Rows", fmt.Sprintf("%d", l.Rows)),
				field("Duplicates", fmt.Sprintf("%d", l.Duplicates)),
				field("Duration", l.Duration.Round(time.Millisecond).String()),
			)
		}
	}
	if report.Err != nil {
		fields = append(fields, map[string]interface{}{
			"name":   "Error",
			"value":  fmt.Sprintf("`%s`", truncate(report.Err.Error(), 1000)),
			"inline": false,
		})
	}

	return map[string]interface{}{
		"title":  title,
		"color":  color,
		"fields": fields,
		"footer": map[string]interface{}{
			"text": fmt.Sprintf("linetracker • %s • %s", report.Environment, report.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC")),
		},
		"timestamp": report.Timestamp.Format(time.RFC3339),
	}
}

func field(name, value string) map[string]interface{} {
	return map[string]interface{}{"name": name, "value": value, "inline": true}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
