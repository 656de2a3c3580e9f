package external

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

func TestDiscordNotifier_Name(t *testing.T) {
	notifier := NewDiscordNotifier(DiscordConfig{})
	if notifier.Name() != "discord" {
		t.Errorf("expected name 'discord', got '%s'", notifier.Name())
	}
}

func TestDiscordNotifier_ShouldNotify(t *testing.T) {
	tests := []struct {
		name     string
		config   DiscordConfig
		event    *domain.AuditEvent
		expected bool
	}{
		{
			name:     "no filters - should notify",
			config:   DiscordConfig{},
			event:    testAuditEvent(domain.AuditSecurityViolation, domain.SeverityMedium),
			expected: true,
		},
		{
			name:     "severity filter - event too low",
			config:   DiscordConfig{MinSeverity: domain.SeverityHigh},
			event:    testAuditEvent(domain.AuditSecurityViolation, domain.SeverityMedium),
			expected: false,
		},
		{
			name:     "severity filter - event matches",
			config:   DiscordConfig{MinSeverity: domain.SeverityHigh},
			event:    testAuditEvent(domain.AuditSecurityViolation, domain.SeverityHigh),
			expected: true,
		},
		{
			name:     "severity filter - event higher severity",
			config:   DiscordConfig{MinSeverity: domain.SeverityHigh},
			event:    testAuditEvent(domain.AuditSecurityViolation, domain.SeverityCritical),
			expected: true,
		},
		{
			name:     "kind filter - matches",
			config:   DiscordConfig{Kinds: []domain.AuditKind{domain.AuditSecurityViolation, domain.AuditPermissionDenied}},
			event:    testAuditEvent(domain.AuditSecurityViolation, domain.SeverityMedium),
			expected: true,
		},
		{
			name:     "kind filter - no match",
			config:   DiscordConfig{Kinds: []domain.AuditKind{domain.AuditPermissionDenied}},
			event:    testAuditEvent(domain.AuditSecurityViolation, domain.SeverityMedium),
			expected: false,
		},
		{
			name: "both filters - both match",
			config: DiscordConfig{
				MinSeverity: domain.SeverityHigh,
				Kinds:       []domain.AuditKind{domain.AuditSecurityViolation},
			},
			event:    testAuditEvent(domain.AuditSecurityViolation, domain.SeverityCritical),
			expected: true,
		},
		{
			name: "both filters - severity fails",
			config: DiscordConfig{
				MinSeverity: domain.SeverityHigh,
				Kinds:       []domain.AuditKind{domain.AuditSecurityViolation},
			},
			event:    testAuditEvent(domain.AuditSecurityViolation, domain.SeverityMedium),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := NewDiscordNotifier(tt.config)
			result := notifier.ShouldNotify(tt.event)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestDiscordNotifier_Send(t *testing.T) {
	tests := []struct {
		name            string
		config          DiscordConfig
		event           *domain.AuditEvent
		expectError     bool
		validatePayload func(t *testing.T, payload map[string]interface{})
	}{
		{
			name: "basic notification",
			config: DiscordConfig{
				Username:  "vibe-ensembled",
				AvatarURL: "https://example.com/avatar.png",
			},
			event: testAuditEvent(domain.AuditSecurityViolation, domain.SeverityMedium),
			validatePayload: func(t *testing.T, payload map[string]interface{}) {
				if payload["username"] != "vibe-ensembled" {
					t.Errorf("expected username 'vibe-ensembled', got '%v'", payload["username"])
				}
				if payload["avatar_url"] != "https://example.com/avatar.png" {
					t.Errorf("expected avatar_url, got '%v'", payload["avatar_url"])
				}
				embeds, ok := payload["embeds"].([]interface{})
				if !ok || len(embeds) == 0 {
					t.Fatal("expected embeds array")
				}
				embed := embeds[0].(map[string]interface{})
				if embed["color"].(float64) != 0x2ECC71 {
					t.Errorf("expected color 0x2ECC71 (green), got %v", embed["color"])
				}
			},
		},
		{
			name:   "critical severity",
			config: DiscordConfig{},
			event:  testAuditEvent(domain.AuditSecurityViolation, domain.SeverityCritical),
			validatePayload: func(t *testing.T, payload map[string]interface{}) {
				embeds := payload["embeds"].([]interface{})
				embed := embeds[0].(map[string]interface{})
				if embed["color"].(float64) != 0xE74C3C {
					t.Errorf("expected color 0xE74C3C (red) for critical, got %v", embed["color"])
				}
			},
		},
		{
			name:   "high severity",
			config: DiscordConfig{},
			event:  testAuditEvent(domain.AuditPermissionDenied, domain.SeverityHigh),
			validatePayload: func(t *testing.T, payload map[string]interface{}) {
				embeds := payload["embeds"].([]interface{})
				embed := embeds[0].(map[string]interface{})
				if embed["color"].(float64) != 0xF39C12 {
					t.Errorf("expected color 0xF39C12 (orange) for high, got %v", embed["color"])
				}
			},
		},
		{
			name:   "with resource field",
			config: DiscordConfig{},
			event:  testAuditEvent(domain.AuditSecurityViolation, domain.SeverityMedium),
			validatePayload: func(t *testing.T, payload map[string]interface{}) {
				embeds := payload["embeds"].([]interface{})
				embed := embeds[0].(map[string]interface{})
				fields := embed["fields"].([]interface{})

				foundResource := false
				for _, f := range fields {
					field := f.(map[string]interface{})
					if field["name"] == "Resource" {
						foundResource = true
						if field["value"] != "system/sys-1" {
							t.Errorf("expected resource 'system/sys-1', got '%v'", field["value"])
						}
						break
					}
				}
				if !foundResource {
					t.Error("expected resource field in embed")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var receivedPayload map[string]interface{}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("failed to read request body: %v", err)
				}
				if err := json.Unmarshal(body, &receivedPayload); err != nil {
					t.Fatalf("failed to unmarshal payload: %v", err)
				}
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			tt.config.WebhookURL = server.URL

			notifier := NewDiscordNotifier(tt.config)
			err := notifier.Send(tt.event)

			if tt.expectError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.expectError && tt.validatePayload != nil {
				tt.validatePayload(t, receivedPayload)
			}
		})
	}
}

func TestDiscordNotifier_Send_NoWebhook(t *testing.T) {
	notifier := NewDiscordNotifier(DiscordConfig{})
	event := testAuditEvent(domain.AuditSecurityViolation, domain.SeverityMedium)

	if err := notifier.Send(event); err == nil {
		t.Error("expected error for missing webhook URL")
	}
}

func TestDiscordNotifier_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewDiscordNotifier(DiscordConfig{WebhookURL: server.URL})
	event := testAuditEvent(domain.AuditSecurityViolation, domain.SeverityMedium)

	if err := notifier.Send(event); err == nil {
		t.Error("expected error for server error response")
	}
}
