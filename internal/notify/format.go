package notify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zulandar/supportline/internal/models"
)

// Color constants for alert severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// severityColor maps a severity string to a sidebar color.
func severityColor(severity string) string {
	switch severity {
	case "success":
		return ColorSuccess
	case "warning":
		return ColorWarning
	case "error":
		return ColorError
	default:
		return ColorInfo
	}
}

// maxPreview caps how much of the customer's message an alert repeats.
const maxPreview = 200

// FormatEscalation renders an escalation alert.
func FormatEscalation(e Escalation) Alert {
	who := displayName(e)
	title := fmt.Sprintf("Chat #%d needs an admin response", e.ChatID)
	if e.Previous == "" {
		title = fmt.Sprintf("New %s chat #%d needs an admin response", e.Kind, e.ChatID)
	}

	severity := "warning"
	if e.Previous == models.StatusClosed {
		severity = "error"
	}

	fields := []Field{
		{Name: "From", Value: who, Short: true},
		{Name: "Kind", Value: string(e.Kind), Short: true},
	}
	if e.Previous != "" {
		fields = append(fields, Field{Name: "Previous status", Value: string(e.Previous), Short: true})
	}
	if !e.At.IsZero() {
		fields = append(fields, Field{Name: "At", Value: e.At.UTC().Format("2006-01-02 15:04:05 UTC"), Short: true})
	}

	return Alert{
		Title:    title,
		Body:     preview(e.Content),
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   fields,
	}
}

func displayName(e Escalation) string {
	switch {
	case e.From.Username != "":
		return e.From.Username
	case e.From.GuestID != "":
		return "guest " + e.From.GuestID
	case e.From.ID != 0:
		return fmt.Sprintf("%s #%d", e.From.Type, e.From.ID)
	}
	return "unknown"
}

func preview(content string) string {
	content = strings.TrimSpace(content)
	if r := []rune(content); len(r) > maxPreview {
		return string(r[:maxPreview]) + "…"
	}
	return content
}

// FormatBacklog renders the periodic digest of chats waiting on admins.
func FormatBacklog(b *Backlog) Alert {
	severity := "info"
	if b.Total >= 10 {
		severity = "warning"
	}

	kinds := make([]string, 0, len(b.ByKind))
	for k := range b.ByKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	var fields []Field
	for _, k := range kinds {
		fields = append(fields, Field{Name: k, Value: fmt.Sprintf("%d", b.ByKind[models.ChatKind(k)]), Short: true})
	}

	body := fmt.Sprintf("%d chat(s) waiting on an admin response.", b.Total)
	if b.Oldest != nil {
		body += fmt.Sprintf(" Oldest untouched since %s.", b.Oldest.UTC().Format("2006-01-02 15:04 UTC"))
	}

	return Alert{
		Title:    "Support backlog",
		Body:     body,
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   fields,
	}
}
