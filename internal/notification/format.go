// File: internal/notification/format.go
package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/smartdevs17/error-tracker/internal/alert"
	"github.com/smartdevs17/error-tracker/internal/models"
)

// severityEmoji decorates alert text per severity
var severityEmoji = map[models.Severity]string{
	models.SeverityLow:      "🟢",
	models.SeverityMedium:   "🟡",
	models.SeverityHigh:     "🟠",
	models.SeverityCritical: "🔴",
}

// discordColors are the embed sidebar colors per severity
var discordColors = map[models.Severity]int{
	models.SeverityLow:      0x2ECC71,
	models.SeverityMedium:   0xF1C40F,
	models.SeverityHigh:     0xE67E22,
	models.SeverityCritical: 0xE74C3C,
}

const defaultDiscordColor = 0x95A5A6

// alertSeverity picks the severity driving emoji and color choices
func alertSeverity(a *alert.Alert) models.Severity {
	if a.Event != nil {
		return a.Event.Severity
	}
	if a.Rule.Severity != nil {
		return *a.Rule.Severity
	}
	return ""
}

// buildSubject builds the one-line alert title
func buildSubject(a *alert.Alert) string {
	emoji := severityEmoji[alertSeverity(a)]
	if emoji == "" {
		emoji = "⚠️"
	}
	return fmt.Sprintf("%s Alert: %s", emoji, a.Rule.Name)
}

// buildBody builds the plain-text alert body shared by all channels
func buildBody(a *alert.Alert) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", a.Summary)
	fmt.Fprintf(&b, "Condition: %s\n", a.Condition)

	if a.Event != nil {
		fmt.Fprintf(&b, "Source: %s\n", a.Event.Source)
		fmt.Fprintf(&b, "Type: %s\n", a.Event.ErrorType)
		fmt.Fprintf(&b, "Severity: %s\n", a.Event.Severity)
		fmt.Fprintf(&b, "Message: %s\n", a.Event.Message)
		if a.Event.Endpoint != "" {
			fmt.Fprintf(&b, "Endpoint: %s %s\n", a.Event.Method, a.Event.Endpoint)
		}
	}
	if a.Group != nil {
		fmt.Fprintf(&b, "Group: %s (%d occurrences)\n", a.Group.ID, a.Group.TotalOccurrences)
	}
	fmt.Fprintf(&b, "Fired at: %s", a.FiredAt.Format(time.RFC3339))

	return b.String()
}

// slackPayload is the Slack incoming-webhook message body
type slackPayload struct {
	Text string `json:"text"`
}

func buildSlackPayload(a *alert.Alert) slackPayload {
	return slackPayload{
		Text: fmt.Sprintf("*%s*\n%s", buildSubject(a), buildBody(a)),
	}
}

// discordEmbed is one embed in a Discord webhook message
type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

// discordPayload is the Discord webhook message body
type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

func buildDiscordPayload(a *alert.Alert) discordPayload {
	color, ok := discordColors[alertSeverity(a)]
	if !ok {
		color = defaultDiscordColor
	}
	return discordPayload{
		Embeds: []discordEmbed{
			{
				Title:       buildSubject(a),
				Description: buildBody(a),
				Color:       color,
			},
		},
	}
}

// webhookPayload is the generic webhook message body
type webhookPayload struct {
	AlertRuleID string             `json:"alert_rule_id"`
	RuleName    string             `json:"rule_name"`
	Condition   string             `json:"condition"`
	Summary     string             `json:"summary"`
	Event       *models.ErrorEvent `json:"event,omitempty"`
	Group       *models.ErrorGroup `json:"group,omitempty"`
	Count       int                `json:"count,omitempty"`
	Rate        float64            `json:"rate,omitempty"`
	FiredAt     time.Time          `json:"fired_at"`
	Source      string             `json:"source"`
}

func buildWebhookPayload(a *alert.Alert) webhookPayload {
	return webhookPayload{
		AlertRuleID: a.Rule.ID,
		RuleName:    a.Rule.Name,
		Condition:   string(a.Condition),
		Summary:     a.Summary,
		Event:       a.Event,
		Group:       a.Group,
		Count:       a.Count,
		Rate:        a.Rate,
		FiredAt:     a.FiredAt,
		Source:      "error-tracker",
	}
}
