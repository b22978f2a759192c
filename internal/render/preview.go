package render

import (
	"github.com/mattn/go-runewidth"

	"gigchat/internal/models"
)

// Preview labels for media messages in the conversation list.
const (
	labelPhoto      = "Photo"
	labelVideo      = "Video"
	labelVoice      = "Voice"
	labelDocument   = "Document"
	labelNoMessages = "No messages yet"
)

// PreviewLabel resolves a conversation's last-message summary to the text
// shown in the list: media kinds map to fixed labels, plain text passes
// through, and an absent summary reads "No messages yet".
func PreviewLabel(summary *models.MessageSummary) string {
	if summary == nil {
		return labelNoMessages
	}
	switch summary.MediaKind {
	case models.MediaKindImage:
		return labelPhoto
	case models.MediaKindVideo:
		return labelVideo
	case models.MediaKindAudio:
		return labelVoice
	case models.MediaKindDocument:
		return labelDocument
	}
	if summary.Text != "" {
		return summary.Text
	}
	return labelNoMessages
}

// TruncatePreview shortens a preview to the given display width, honoring
// wide runes.
func TruncatePreview(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
