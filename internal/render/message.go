package render

import (
	"fmt"
	"strings"

	"gigchat/internal/models"
)

// BodyOptions carries the per-message presentation state the renderers
// need beyond the message itself.
type BodyOptions struct {
	Width            int
	Downloaded       bool    // document already downloaded once
	Playing          bool    // audio: this instance holds playback
	PlaybackFraction float64 // audio: position in [0,1]
	ClipPCM          []byte  // audio: decoded samples for waveform rendering
}

// MessageBody renders the content of one message bubble, dispatching on
// the attachment's media kind. Text-only messages pass through unchanged.
func MessageBody(msg models.Message, opts BodyOptions) string {
	if !msg.HasMedia() {
		return msg.Text
	}

	var body string
	switch msg.Kind() {
	case models.MediaKindImage:
		body = imageBody(msg)
	case models.MediaKindVideo:
		body = videoBody(msg)
	case models.MediaKindAudio:
		body = audioBody(msg, opts)
	default:
		body = documentBody(msg, opts)
	}

	if msg.Text != "" {
		body = body + "\n" + msg.Text
	}
	return body
}

// imageBody shows a thumbnail placeholder; the full-screen viewer is
// opened from the thread view.
func imageBody(msg models.Message) string {
	return fmt.Sprintf("🖼 %s\n[enter: view]", FileNameFromURL(msg.MediaURL))
}

func videoBody(msg models.Message) string {
	return fmt.Sprintf("▶ %s\n[enter: play]", FileNameFromURL(msg.MediaURL))
}

// audioBody renders the voice player: WAV clips get the waveform strip,
// every other container a plain progress bar.
func audioBody(msg models.Message, opts BodyOptions) string {
	width := opts.Width
	if width <= 0 {
		width = 24
	}

	control := "▶"
	if opts.Playing {
		control = "⏸"
	}

	name := FileNameFromURL(msg.MediaURL)
	if strings.HasSuffix(strings.ToLower(name), ".wav") && len(opts.ClipPCM) > 0 {
		return control + " " + Waveform(opts.ClipPCM, width)
	}
	return control + " " + ProgressBar(opts.PlaybackFraction, width)
}

// documentBody renders the icon, name, and the one-time download
// affordance; once downloaded only the preview hint remains.
func documentBody(msg models.Message, opts BodyOptions) string {
	name := FileNameFromURL(msg.MediaURL)
	line := fmt.Sprintf("%s %s", DocumentIcon(name), name)
	if opts.Downloaded {
		return line + "\n[o: open preview]"
	}
	return line + "\n[d: download] [o: open preview]"
}
