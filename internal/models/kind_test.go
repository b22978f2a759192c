package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindFromContentType(t *testing.T) {
	tests := []struct {
		contentType string
		expected    MediaKind
	}{
		{"", MediaKindNone},
		{"image/png", MediaKindImage},
		{"video/mp4", MediaKindVideo},
		{"audio/wav", MediaKindAudio},
		{"application/pdf", MediaKindDocument},
		{"text/plain", MediaKindDocument},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindFromContentType(tt.contentType))
		})
	}
}

func TestKindFromExtension(t *testing.T) {
	assert.Equal(t, MediaKindImage, KindFromExtension("JPG"))
	assert.Equal(t, MediaKindVideo, KindFromExtension("webm"))
	assert.Equal(t, MediaKindAudio, KindFromExtension("wav"))
	assert.Equal(t, MediaKindDocument, KindFromExtension("pdf"))
	assert.Equal(t, MediaKindNone, KindFromExtension(""))
}

func TestMessageKind(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		expected MediaKind
	}{
		{"declared kind wins", Message{MediaURL: "https://cdn/x.png", MediaKind: MediaKindVideo}, MediaKindVideo},
		{"no media", Message{Text: "hi"}, MediaKindNone},
		{"inferred from extension", Message{MediaURL: "https://cdn/voice.wav"}, MediaKindAudio},
		{"query string ignored", Message{MediaURL: "https://cdn/photo.png?token=abc"}, MediaKindImage},
		{"unknown extension is a document", Message{MediaURL: "https://cdn/contract.pdf"}, MediaKindDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.msg.Kind())
		})
	}
}

func TestMessageSummary(t *testing.T) {
	text := Message{Text: "hello"}
	assert.Equal(t, MessageSummary{Text: "hello"}, text.Summary())
	assert.False(t, text.HasMedia())

	media := Message{Text: "caption", MediaURL: "https://cdn/x.png", MediaKind: MediaKindImage}
	assert.Equal(t, MessageSummary{MediaKind: MediaKindImage}, media.Summary(), "media wins over caption text in previews")
	assert.True(t, media.HasMedia())
}
