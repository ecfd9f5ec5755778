package telegram

import (
	"html"
	"strings"
)

// PanelMessage renders the activation notice sent when a chat is linked.
func PanelMessage(areaName string, artistNames []string) string {
	var b strings.Builder

	b.WriteString("🎸 <b>EventBot Panel Activated</b>\n\n")
	b.WriteString("Your event radar for <b>")
	b.WriteString(html.EscapeString(areaName))
	b.WriteString("</b> is online.\n\n")
	b.WriteString("Artists being monitored:\n")

	if len(artistNames) == 0 {
		b.WriteString("<i>No artists loaded yet.</i>")
		return b.String()
	}

	for i, name := range artistNames {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• ")
		b.WriteString(html.EscapeString(name))
	}

	return b.String()
}
