package external

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

// EmailConfig holds configuration for email audit-event notifications.
type EmailConfig struct {
	SMTPHost    string               `json:"smtp_host"`
	SMTPPort    int                  `json:"smtp_port"`
	Username    string               `json:"username"`
	Password    string               `json:"password"`
	From        string               `json:"from"`
	To          []string             `json:"to"`
	Kinds       []domain.AuditKind   `json:"kinds,omitempty"`
	MinSeverity domain.AuditSeverity `json:"min_severity,omitempty"`
}

// EmailNotifier sends audit events via email. Grounded on
// internal/notifications/external/email.go's EmailNotifier, rewired
// from events.Event to domain.AuditEvent.
type EmailNotifier struct {
	config EmailConfig
}

func NewEmailNotifier(config EmailConfig) *EmailNotifier {
	return &EmailNotifier{config: config}
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) ShouldNotify(event *domain.AuditEvent) bool {
	if e.config.MinSeverity != "" && severityRank(event.Severity) < severityRank(e.config.MinSeverity) {
		return false
	}
	if len(e.config.Kinds) > 0 {
		found := false
		for _, k := range e.config.Kinds {
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

func (e *EmailNotifier) Send(event *domain.AuditEvent) error {
	if e.config.SMTPHost == "" {
		return fmt.Errorf("SMTP host not configured")
	}
	if e.config.From == "" {
		return fmt.Errorf("from address not configured")
	}
	if len(e.config.To) == 0 {
		return fmt.Errorf("no recipient addresses configured")
	}

	subject := e.buildSubject(event)
	body := e.buildBody(event)
	message := e.buildMessage(subject, body)

	addr := fmt.Sprintf("%s:%d", e.config.SMTPHost, e.config.SMTPPort)
	var auth smtp.Auth
	if e.config.Username != "" && e.config.Password != "" {
		auth = smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, e.config.From, e.config.To, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (e *EmailNotifier) buildSubject(event *domain.AuditEvent) string {
	prefix := ""
	switch event.Severity {
	case domain.SeverityCritical:
		prefix = "[CRITICAL] "
	case domain.SeverityHigh:
		prefix = "[HIGH] "
	}
	return fmt.Sprintf("%svibe-ensembled %s Event - %s", prefix, event.Kind, event.ID)
}

func (e *EmailNotifier) buildBody(event *domain.AuditEvent) string {
	var body strings.Builder

	body.WriteString("vibe-ensembled Audit Notification\n")
	body.WriteString("==================================\n\n")

	body.WriteString(fmt.Sprintf("Event ID: %s\n", event.ID))
	body.WriteString(fmt.Sprintf("Kind: %s\n", event.Kind))
	body.WriteString(fmt.Sprintf("Actor: %s\n", event.Actor))
	if event.ResourceID != "" {
		body.WriteString(fmt.Sprintf("Resource: %s/%s\n", event.ResourceType, event.ResourceID))
	}
	body.WriteString(fmt.Sprintf("Action: %s\n", event.Action))
	body.WriteString(fmt.Sprintf("Result: %s\n", event.Result))
	body.WriteString(fmt.Sprintf("Severity: %s\n", event.Severity))
	body.WriteString(fmt.Sprintf("Timestamp: %s\n", event.Timestamp.Format(time.RFC3339)))

	if len(event.Metadata) > 0 {
		body.WriteString("\nMetadata:\n")
		body.WriteString("---------\n")
		for k, v := range event.Metadata {
			body.WriteString(fmt.Sprintf("%s: %s\n", k, v))
		}
	}

	body.WriteString("\n--\n")
	body.WriteString("This is an automated notification from vibe-ensembled\n")

	return body.String()
}

func (e *EmailNotifier) buildMessage(subject, body string) string {
	var message strings.Builder

	message.WriteString(fmt.Sprintf("From: %s\r\n", e.config.From))
	message.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(e.config.To, ", ")))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	message.WriteString("\r\n")
	message.WriteString(body)

	return message.String()
}
