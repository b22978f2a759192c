package tui

import (
	"fmt"
	"strings"

	"gigchat/internal/render"
)

// View renders the active screen.
func (m Model) View() string {
	if m.screen == screenList {
		return m.listView()
	}
	return m.threadView()
}

func (m Model) listView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Conversations"))
	b.WriteString("\n\n")

	if !m.conn.Connected() {
		b.WriteString(hintStyle.Render("realtime offline, presence unavailable [r: reconnect]"))
		b.WriteString("\n\n")
	}

	if m.loadingList {
		b.WriteString(fmt.Sprintf("%s Loading conversations...\n", m.spin.View()))
		return b.String()
	}
	if m.listErr != "" {
		b.WriteString(errorStyle.Render(m.listErr))
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("[r: retry] [q: quit]"))
		b.WriteString("\n")
		if len(m.conversations) == 0 {
			return b.String()
		}
		b.WriteString("\n")
	}
	if len(m.conversations) == 0 {
		b.WriteString(hintStyle.Render("No conversations yet"))
		b.WriteString("\n")
		return b.String()
	}

	previewWidth := m.width - 6
	if previewWidth < 20 {
		previewWidth = 20
	}
	for i, conv := range m.conversations {
		dot := presenceDot(m.conn.Presence().IsOnline(conv.OtherParticipant.ID))
		name := conv.OtherParticipant.Username
		preview := render.TruncatePreview(render.PreviewLabel(conv.LastMessage), previewWidth)

		line := fmt.Sprintf("%s %s", dot, name)
		if i == m.cursor {
			b.WriteString(selectedItemStyle.Render("> " + line))
		} else {
			b.WriteString(itemStyle.Render("  " + line))
		}
		b.WriteString("\n")
		b.WriteString(previewStyle.Render("    " + preview))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("[enter: open] [r: refresh] [q: quit]"))
	b.WriteString("\n")
	return b.String()
}
