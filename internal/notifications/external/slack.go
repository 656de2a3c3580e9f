package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

// SlackConfig holds configuration for Slack audit-event notifications.
type SlackConfig struct {
	WebhookURL  string               `json:"webhook_url"`
	Channel     string               `json:"channel,omitempty"`
	Username    string               `json:"username,omitempty"`
	IconEmoji   string               `json:"icon_emoji,omitempty"`
	Kinds       []domain.AuditKind   `json:"kinds,omitempty"`
	MinSeverity domain.AuditSeverity `json:"min_severity,omitempty"`
}

// SlackNotifier sends audit events to Slack via an incoming webhook.
// Grounded on internal/notifications/external/slack.go's SlackNotifier,
// rewired from events.Event to domain.AuditEvent (spec §3's audit log).
type SlackNotifier struct {
	config SlackConfig
	client *http.Client
}

func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{config: config, client: &http.Client{Timeout: 10 * time.Second}}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) ShouldNotify(event *domain.AuditEvent) bool {
	if s.config.MinSeverity != "" && severityRank(event.Severity) < severityRank(s.config.MinSeverity) {
		return false
	}
	if len(s.config.Kinds) > 0 {
		found := false
		for _, k := range s.config.Kinds {
			if event.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *SlackNotifier) Send(event *domain.AuditEvent) error {
	if s.config.WebhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}

	color := "good"
	switch event.Severity {
	case domain.SeverityCritical:
		color = "danger"
	case domain.SeverityHigh:
		color = "warning"
	}

	fields := []map[string]interface{}{
		{"title": "Kind", "value": string(event.Kind), "short": true},
		{"title": "Actor", "value": event.Actor, "short": true},
		{"title": "Severity", "value": string(event.Severity), "short": true},
		{"title": "Result", "value": string(event.Result), "short": true},
	}
	if event.ResourceID != "" {
		fields = append(fields, map[string]interface{}{
			"title": "Resource", "value": fmt.Sprintf("%s/%s", event.ResourceType, event.ResourceID), "short": true,
		})
	}
	for k, v := range event.Metadata {
		fields = append(fields, map[string]interface{}{"title": k, "value": v, "short": false})
	}

	payload := map[string]interface{}{
		"text": fmt.Sprintf("Audit event: %s", event.ID),
		"attachments": []map[string]interface{}{
			{
				"color":  color,
				"title":  fmt.Sprintf("%s: %s", event.Kind, event.Action),
				"fields": fields,
				"ts":     event.Timestamp.Unix(),
			},
		},
	}
	if s.config.Channel != "" {
		payload["channel"] = s.config.Channel
	}
	if s.config.Username != "" {
		payload["username"] = s.config.Username
	}
	if s.config.IconEmoji != "" {
		payload["icon_emoji"] = s.config.IconEmoji
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := s.client.Post(s.config.WebhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API returned status %d", resp.StatusCode)
	}
	return nil
}

// severityRank orders AuditSeverity from least to most severe so
// MinSeverity filters can compare with >=.
func severityRank(s domain.AuditSeverity) int {
	switch s {
	case domain.SeverityLow:
		return 0
	case domain.SeverityMedium:
		return 1
	case domain.SeverityHigh:
		return 2
	case domain.SeverityCritical:
		return 3
	default:
		return 0
	}
}
