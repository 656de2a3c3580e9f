package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

// DiscordConfig holds configuration for Discord audit-event
// notifications.
type DiscordConfig struct {
	WebhookURL  string               `json:"webhook_url"`
	Username    string               `json:"username,omitempty"`
	AvatarURL   string               `json:"avatar_url,omitempty"`
	Kinds       []domain.AuditKind   `json:"kinds,omitempty"`
	MinSeverity domain.AuditSeverity `json:"min_severity,omitempty"`
}

// DiscordNotifier sends audit events to Discord via an incoming
// webhook. Grounded on internal/notifications/external/discord.go's
// DiscordNotifier, rewired from events.Event to domain.AuditEvent.
type DiscordNotifier struct {
	config DiscordConfig
	client *http.Client
}

func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{config: config, client: &http.Client{Timeout: 10 * time.Second}}
}

func (d *DiscordNotifier) Name() string { return "discord" }

func (d *DiscordNotifier) ShouldNotify(event *domain.AuditEvent) bool {
	if d.config.MinSeverity != "" && severityRank(event.Severity) < severityRank(d.config.MinSeverity) {
		return false
	}
	if len(d.config.Kinds) > 0 {
		found := false
		for _, k := range d.config.Kinds {
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

func (d *DiscordNotifier) Send(event *domain.AuditEvent) error {
	if d.config.WebhookURL == "" {
		return fmt.Errorf("discord webhook URL not configured")
	}

	color := 0x2ECC71
	switch event.Severity {
	case domain.SeverityCritical:
		color = 0xE74C3C
	case domain.SeverityHigh:
		color = 0xF39C12
	}

	fields := []map[string]interface{}{
		{"name": "Kind", "value": string(event.Kind), "inline": true},
		{"name": "Actor", "value": event.Actor, "inline": true},
		{"name": "Severity", "value": string(event.Severity), "inline": true},
		{"name": "Result", "value": string(event.Result), "inline": true},
	}
	if event.ResourceID != "" {
		fields = append(fields, map[string]interface{}{
			"name": "Resource", "value": fmt.Sprintf("%s/%s", event.ResourceType, event.ResourceID), "inline": true,
		})
	}
	for k, v := range event.Metadata {
		fields = append(fields, map[string]interface{}{"name": k, "value": v, "inline": false})
	}

	embed := map[string]interface{}{
		"title":       fmt.Sprintf("%s: %s", event.Kind, event.Action),
		"description": fmt.Sprintf("Audit event %s", event.ID),
		"color":       color,
		"timestamp":   event.Timestamp.Format(time.RFC3339),
		"fields":      fields,
	}
	payload := map[string]interface{}{"embeds": []map[string]interface{}{embed}}
	if d.config.Username != "" {
		payload["username"] = d.config.Username
	}
	if d.config.AvatarURL != "" {
		payload["avatar_url"] = d.config.AvatarURL
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := d.client.Post(d.config.WebhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send discord notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}
	return nil
}
