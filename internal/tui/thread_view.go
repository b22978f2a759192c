package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gigchat/internal/errors"
	"gigchat/internal/models"
	"gigchat/internal/render"
)

func (m Model) threadView() string {
	if m.thread == nil {
		return ""
	}

	var b strings.Builder
	other := m.conv.OtherParticipant
	online := m.thread.OtherOnline()
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %s", presenceDot(online), other.Username)))
	if online {
		b.WriteString(hintStyle.Render("  online"))
	} else {
		b.WriteString(hintStyle.Render("  offline"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	b.WriteString(m.composerView())
	return b.String()
}

func (m Model) composerView() string {
	var b strings.Builder

	if m.attaching {
		b.WriteString("Attach: ")
		b.WriteString(m.attachIn.View())
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("[enter: attach] [esc: cancel]"))
		b.WriteString("\n")
		return b.String()
	}

	draft := m.thread.Draft()
	if draft.AttachmentPath != "" {
		b.WriteString(hintStyle.Render(fmt.Sprintf("📎 %s", draft.AttachmentPath)))
		b.WriteString("\n")
	}
	if draft.Clip != nil {
		b.WriteString(hintStyle.Render(fmt.Sprintf("🎤 voice clip (%.1fs) %s",
			draft.Clip.Duration(), render.Waveform(draft.Clip.Data, 24))))
		b.WriteString("\n")
	}
	if m.recording {
		b.WriteString(errorStyle.Render("● recording... [ctrl+r: stop]"))
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.sending {
		b.WriteString(fmt.Sprintf("%s Sending...", m.spin.View()))
		if m.uploadFrac > 0 {
			b.WriteString("  ")
			b.WriteString(m.prog.ViewAs(m.uploadFrac))
		}
		b.WriteString("\n")
	}
	if m.threadErr != "" {
		b.WriteString(errorStyle.Render(m.threadErr))
		b.WriteString("\n")
	}
	if m.statusMsg != "" {
		b.WriteString(hintStyle.Render(m.statusMsg))
		b.WriteString("\n")
	}

	b.WriteString(hintStyle.Render("[enter: send] [tab: messages] [ctrl+o: attach] [ctrl+r: record] [esc: back]"))
	b.WriteString("\n")
	return b.String()
}

// refreshViewport re-renders the message history into the viewport and
// keeps it pinned to the newest message.
func (m *Model) refreshViewport() {
	width := m.viewport.Width
	if width < 30 {
		width = 30
	}
	bubbleWidth := width * 2 / 3

	var b strings.Builder
	for i, msg := range m.msgs {
		body := render.MessageBody(msg, render.BodyOptions{
			Width:      bubbleWidth,
			Downloaded: m.downloaded[render.FileNameFromURL(msg.MediaURL)],
			Playing:    m.session.Current() == msg.ID,
			ClipPCM:    m.clipPCM[msg.ID],
		})

		var bubble string
		if m.thread.IsOwn(msg) {
			bubble = ownBubbleStyle.MaxWidth(bubbleWidth).Render(body)
			bubble = lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble)
		} else {
			bubble = otherBubbleStyle.MaxWidth(bubbleWidth).Render(body)
		}

		if m.focus == focusMessages && i == m.msgCursor {
			bubble = selectedItemStyle.Render("▌") + bubble
		}
		b.WriteString(bubble)
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// downloadSelected records the selected document as fetched so the
// download affordance disappears on the next render.
func (m Model) downloadSelected() (tea.Model, tea.Cmd) {
	if m.msgCursor >= len(m.msgs) {
		return m, nil
	}
	msg := m.msgs[m.msgCursor]
	if msg.Kind() != models.MediaKindDocument {
		return m, nil
	}
	name := render.FileNameFromURL(msg.MediaURL)
	if err := m.downloads.MarkDownloaded(m.ctx, name); err != nil {
		m.threadErr = errors.GetUserMessage(err)
		return m, nil
	}
	m.downloaded[name] = true
	m.statusMsg = fmt.Sprintf("Saved %s", name)
	m.refreshViewport()
	return m, nil
}

// openSelected surfaces the external viewer URL for the selected document.
func (m Model) openSelected() (tea.Model, tea.Cmd) {
	if m.msgCursor >= len(m.msgs) {
		return m, nil
	}
	msg := m.msgs[m.msgCursor]
	if msg.Kind() != models.MediaKindDocument {
		return m, nil
	}
	m.statusMsg = fmt.Sprintf("Preview: %s", render.ViewerURL(msg.MediaURL))
	return m, nil
}
