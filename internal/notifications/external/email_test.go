package external

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

func TestEmailNotifier_Name(t *testing.T) {
	notifier := NewEmailNotifier(EmailConfig{})
	if notifier.Name() != "email" {
		t.Errorf("expected name 'email', got '%s'", notifier.Name())
	}
}

func TestEmailNotifier_ShouldNotify(t *testing.T) {
	tests := []struct {
		name     string
		config   EmailConfig
		event    *domain.AuditEvent
		expected bool
	}{
		{
			name:     "no filters - should notify",
			config:   EmailConfig{},
			event:    testAuditEvent(domain.AuditSecurityViolation, domain.SeverityMedium),
			expected: true,
		},
		{
			name:     "severity filter - event too low",
			config:   EmailConfig{MinSeverity: domain.SeverityHigh},
			event:    testAuditEvent(domain.AuditSecurityViolation, domain.SeverityMedium),
			expected: false,
		},
		{
			name:     "severity filter - event matches",
			config:   EmailConfig{MinSeverity: domain.SeverityHigh},
			event:    testAuditEvent(domain.AuditSecurityViolation, domain.SeverityHigh),
			expected: true,
		},
		{
			name:     "severity filter - event higher severity",
			config:   EmailConfig{MinSeverity: domain.SeverityHigh},
			event:    testAuditEvent(domain.AuditSecurityViolation, domain.SeverityCritical),
			expected: true,
		},
		{
			name:     "kind filter - matches",
			config:   EmailConfig{Kinds: []domain.AuditKind{domain.AuditSecurityViolation, domain.AuditPermissionDenied}},
			event:    testAuditEvent(domain.AuditSecurityViolation, domain.SeverityMedium),
			expected: true,
		},
		{
			name:     "kind filter - no match",
			config:   EmailConfig{Kinds: []domain.AuditKind{domain.AuditPermissionDenied}},
			event:    testAuditEvent(domain.AuditSecurityViolation, domain.SeverityMedium),
			expected: false,
		},
		{
			name: "both filters - both match",
			config: EmailConfig{
				MinSeverity: domain.SeverityHigh,
				Kinds:       []domain.AuditKind{domain.AuditSecurityViolation},
			},
			event:    testAuditEvent(domain.AuditSecurityViolation, domain.SeverityCritical),
			expected: true,
		},
		{
			name: "both filters - severity fails",
			config: EmailConfig{
				MinSeverity: domain.SeverityHigh,
				Kinds:       []domain.AuditKind{domain.AuditSecurityViolation},
			},
			event:    testAuditEvent(domain.AuditSecurityViolation, domain.SeverityMedium),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := NewEmailNotifier(tt.config)
			result := notifier.ShouldNotify(tt.event)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestEmailNotifier_buildSubject(t *testing.T) {
	tests := []struct {
		name     string
		event    *domain.AuditEvent
		expected string
	}{
		{
			name:     "critical severity",
			event:    domain.NewAuditEvent(domain.AuditSecurityViolation, domain.SeverityCritical, "actor-1", "agent", "agent-1", "violation", domain.AuditFailure),
			expected: "[CRITICAL] vibe-ensembled SecurityViolation Event - ",
		},
		{
			name:     "high severity",
			event:    domain.NewAuditEvent(domain.AuditPermissionDenied, domain.SeverityHigh, "actor-1", "agent", "agent-1", "denied", domain.AuditFailure),
			expected: "[HIGH] vibe-ensembled PermissionDenied Event - ",
		},
		{
			name:     "medium severity",
			event:    domain.NewAuditEvent(domain.AuditMessageSent, domain.SeverityMedium, "actor-1", "message", "msg-1", "sent", domain.AuditSuccess),
			expected: "vibe-ensembled MessageSent Event - ",
		},
		{
			name:     "low severity",
			event:    domain.NewAuditEvent(domain.AuditKnowledgeCreated, domain.SeverityLow, "actor-1", "knowledge", "k-1", "created", domain.AuditSuccess),
			expected: "vibe-ensembled KnowledgeCreated Event - ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := NewEmailNotifier(EmailConfig{})
			subject := notifier.buildSubject(tt.event)
			if !strings.HasPrefix(subject, tt.expected) {
				t.Errorf("expected subject to start with '%s', got '%s'", tt.expected, subject)
			}
		})
	}
}

func TestEmailNotifier_buildBody(t *testing.T) {
	event := domain.NewAuditEvent(domain.AuditSecurityViolation, domain.SeverityCritical, "captain", "agent", "agent-1", "lockout", domain.AuditFailure)
	event.Metadata = map[string]string{"message": "Test message", "count": "42"}

	notifier := NewEmailNotifier(EmailConfig{})
	body := notifier.buildBody(event)

	requiredStrings := []string{
		"vibe-ensembled Audit Notification",
		"Event ID: " + event.ID,
		"Kind: SecurityViolation",
		"Actor: captain",
		"Resource: agent/agent-1",
		"Action: lockout",
		"Result: failure",
		"Severity: Critical",
		"Metadata:",
		"automated notification",
	}

	for _, required := range requiredStrings {
		if !strings.Contains(body, required) {
			t.Errorf("body missing required string: %s", required)
		}
	}

	if !strings.Contains(body, "message:") && !strings.Contains(body, "count:") {
		t.Error("body missing metadata fields")
	}
}

func TestEmailNotifier_buildMessage(t *testing.T) {
	notifier := NewEmailNotifier(EmailConfig{
		From: "sender@example.com",
		To:   []string{"recipient1@example.com", "recipient2@example.com"},
	})

	subject := "Test Subject"
	body := "Test Body"

	message := notifier.buildMessage(subject, body)

	requiredHeaders := []string{
		"From: sender@example.com",
		"To: recipient1@example.com, recipient2@example.com",
		"Subject: Test Subject",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
	}

	for _, header := range requiredHeaders {
		if !strings.Contains(message, header) {
			t.Errorf("message missing required header: %s", header)
		}
	}

	if !strings.Contains(message, "Test Body") {
		t.Error("message missing body content")
	}
}

func TestEmailNotifier_Send_MissingConfig(t *testing.T) {
	tests := []struct {
		name   string
		config EmailConfig
	}{
		{
			name: "missing SMTP host",
			config: EmailConfig{
				From: "test@example.com",
				To:   []string{"recipient@example.com"},
			},
		},
		{
			name: "missing from address",
			config: EmailConfig{
				SMTPHost: "smtp.example.com",
				SMTPPort: 25,
				To:       []string{"recipient@example.com"},
			},
		},
		{
			name: "missing recipients",
			config: EmailConfig{
				SMTPHost: "smtp.example.com",
				SMTPPort: 25,
				From:     "test@example.com",
				To:       []string{},
			},
		},
	}

	event := testAuditEvent(domain.AuditSecurityViolation, domain.SeverityMedium)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := NewEmailNotifier(tt.config)
			if err := notifier.Send(event); err == nil {
				t.Error("expected error for missing config")
			}
		})
	}
}

func TestEmailNotifier_Send(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start mock SMTP server: %v", err)
	}
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port

	messageChan := make(chan string, 1)

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		writer := bufio.NewWriter(conn)

		writer.WriteString("220 localhost SMTP Mock\r\n")
		writer.Flush()

		var messageData strings.Builder
		inData := false

		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				break
			}

			if inData {
				if strings.TrimSpace(line) == "." {
					messageChan <- messageData.String()
					writer.WriteString("250 OK\r\n")
					writer.Flush()
					inData = false
				} else {
					messageData.WriteString(line)
				}
				continue
			}

			switch {
			case strings.HasPrefix(line, "HELO"), strings.HasPrefix(line, "EHLO"):
				writer.WriteString("250 Hello\r\n")
			case strings.HasPrefix(line, "MAIL FROM:"):
				writer.WriteString("250 OK\r\n")
			case strings.HasPrefix(line, "RCPT TO:"):
				writer.WriteString("250 OK\r\n")
			case strings.HasPrefix(line, "DATA"):
				writer.WriteString("354 Start mail input\r\n")
				inData = true
			case strings.HasPrefix(line, "QUIT"):
				writer.WriteString("221 Bye\r\n")
				writer.Flush()
				return
			}
			writer.Flush()
		}
	}()

	notifier := NewEmailNotifier(EmailConfig{
		SMTPHost: "127.0.0.1",
		SMTPPort: port,
		From:     "sender@example.com",
		To:       []string{"recipient@example.com"},
	})

	event := domain.NewAuditEvent(domain.AuditSecurityViolation, domain.SeverityCritical, "captain", "agent", "agent-1", "lockout", domain.AuditFailure)
	event.Metadata = map[string]string{"message": "Test alert"}

	if err := notifier.Send(event); err != nil {
		t.Fatalf("failed to send email: %v", err)
	}

	select {
	case message := <-messageChan:
		if !strings.Contains(message, "From: sender@example.com") {
			t.Error("message missing From header")
		}
		if !strings.Contains(message, "To: recipient@example.com") {
			t.Error("message missing To header")
		}
		if !strings.Contains(message, "[CRITICAL]") {
			t.Error("message missing CRITICAL prefix in subject")
		}
		if !strings.Contains(message, event.ID) {
			t.Error("message missing event ID")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for email")
	}
}

func TestEmailNotifier_Send_WithAuth(t *testing.T) {
	config := EmailConfig{
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		Username: "testuser",
		Password: "testpass",
		From:     "sender@example.com",
		To:       []string{"recipient@example.com"},
	}

	notifier := NewEmailNotifier(config)
	if notifier.config.Username != "testuser" {
		t.Error("username not stored correctly")
	}
	if notifier.config.Password != "testpass" {
		t.Error("password not stored correctly")
	}
}

func TestEmailNotifier_Send_Integration(t *testing.T) {
	tests := []struct {
		name           string
		event          *domain.AuditEvent
		expectedPrefix string
	}{
		{
			name:           "critical violation",
			event:          testAuditEvent(domain.AuditSecurityViolation, domain.SeverityCritical),
			expectedPrefix: "[CRITICAL]",
		},
		{
			name:           "high severity denial",
			event:          testAuditEvent(domain.AuditPermissionDenied, domain.SeverityHigh),
			expectedPrefix: "[HIGH]",
		},
		{
			name:           "medium severity message",
			event:          testAuditEvent(domain.AuditMessageSent, domain.SeverityMedium),
			expectedPrefix: "vibe-ensembled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := NewEmailNotifier(EmailConfig{
				From: "test@example.com",
				To:   []string{"recipient@example.com"},
			})

			subject := notifier.buildSubject(tt.event)

			if !strings.HasPrefix(subject, tt.expectedPrefix) {
				t.Errorf("expected subject to start with '%s', got '%s'", tt.expectedPrefix, subject)
			}
		})
	}
}
