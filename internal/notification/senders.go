// File: internal/notification/senders.go
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/smartdevs17/error-tracker/internal/alert"
	"github.com/smartdevs17/error-tracker/pkg/utils"
)

// Sender delivers one alert to one recipient on a single channel
type Sender interface {
	Send(ctx context.Context, recipient string, a *alert.Alert) error
}

// postJSON marshals v and POSTs it, treating any non-2xx status as a
// dispatch failure.
func postJSON(ctx context.Context, client *http.Client, url string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to marshal notification payload", err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to create notification request", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Error-Tracker/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDispatch, "Failed to send notification", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return utils.NewAppError(utils.ErrCodeDispatch,
			"Notification endpoint returned non-success status",
			fmt.Sprintf("status: %d, body: %s", resp.StatusCode, string(body)))
	}
	return nil
}

// SlackSender posts alerts to a Slack incoming webhook URL
type SlackSender struct {
	client *http.Client
}

// NewSlackSender creates a new Slack sender
func NewSlackSender(client *http.Client) *SlackSender {
	return &SlackSender{client: client}
}

// Send delivers the alert to the recipient webhook URL
func (s *SlackSender) Send(ctx context.Context, recipient string, a *alert.Alert) error {
	return postJSON(ctx, s.client, recipient, buildSlackPayload(a))
}

// DiscordSender posts alerts to a Discord webhook URL as an embed
type DiscordSender struct {
	client *http.Client
}

// NewDiscordSender creates a new Discord sender
func NewDiscordSender(client *http.Client) *DiscordSender {
	return &DiscordSender{client: client}
}

// Send delivers the alert to the recipient webhook URL
func (d *DiscordSender) Send(ctx context.Context, recipient string, a *alert.Alert) error {
	return postJSON(ctx, d.client, recipient, buildDiscordPayload(a))
}

// WebhookSender posts the full alert document to an arbitrary endpoint
type WebhookSender struct {
	client *http.Client
}

// NewWebhookSender creates a new generic webhook sender
func NewWebhookSender(client *http.Client) *WebhookSender {
	return &WebhookSender{client: client}
}

// Send delivers the alert to the recipient endpoint
func (w *WebhookSender) Send(ctx context.Context, recipient string, a *alert.Alert) error {
	return postJSON(ctx, w.client, recipient, buildWebhookPayload(a))
}

// EmailConfig holds SMTP delivery settings
type EmailConfig struct {
	SMTPHost  string
	SMTPPort  int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// EmailSender delivers alerts over SMTP
type EmailSender struct {
	config EmailConfig
}

// NewEmailSender creates a new email sender
func NewEmailSender(config EmailConfig) *EmailSender {
	return &EmailSender{config: config}
}

// Send delivers the alert to the recipient address
func (e *EmailSender) Send(ctx context.Context, recipient string, a *alert.Alert) error {
	if e.config.SMTPHost == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "SMTP host is not configured", "")
	}

	var auth smtp.Auth
	if e.config.Username != "" && e.config.Password != "" {
		auth = smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.SMTPHost)
	}

	message := e.buildMessage(recipient, a)
	addr := fmt.Sprintf("%s:%d", e.config.SMTPHost, e.config.SMTPPort)

	// net/smtp has no context support; run the send in a goroutine and
	// abandon it when the dispatch deadline expires.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, e.config.FromEmail, []string{recipient}, message)
	}()

	select {
	case err := <-done:
		if err != nil {
			return utils.NewAppError(utils.ErrCodeDispatch, "Failed to send email", err.Error())
		}
		return nil
	case <-ctx.Done():
		return utils.NewAppError(utils.ErrCodeDispatch, "Email send timed out", ctx.Err().Error())
	}
}

func (e *EmailSender) buildMessage(recipient string, a *alert.Alert) []byte {
	var b strings.Builder

	from := e.config.FromEmail
	if e.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", e.config.FromName, e.config.FromEmail)
	}

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", buildSubject(a))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(buildBody(a))

	return []byte(b.String())
}
