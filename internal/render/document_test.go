package render

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"gigchat/internal/constants"
)

func TestViewerURL(t *testing.T) {
	tests := []struct {
		name    string
		fileURL string
		base    string
	}{
		{"docx uses office viewer", "https://cdn.example.com/brief.docx", constants.OfficeViewerBaseURL},
		{"xlsx uses office viewer", "https://cdn.example.com/rates.xlsx", constants.OfficeViewerBaseURL},
		{"ppt uses office viewer", "https://cdn.example.com/deck.ppt", constants.OfficeViewerBaseURL},
		{"pdf uses generic viewer", "https://cdn.example.com/contract.pdf", constants.DocsViewerBaseURL},
		{"unknown uses generic viewer", "https://cdn.example.com/data.bin", constants.DocsViewerBaseURL},
		{"query string ignored for extension", "https://cdn.example.com/brief.docx?v=2", constants.OfficeViewerBaseURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viewer := ViewerURL(tt.fileURL)
			assert.Equal(t, tt.base+url.QueryEscape(tt.fileURL), viewer)
		})
	}
}

func TestFileNameFromURL(t *testing.T) {
	assert.Equal(t, "brief.pdf", FileNameFromURL("https://cdn.example.com/uploads/brief.pdf"))
	assert.Equal(t, "brief.pdf", FileNameFromURL("https://cdn.example.com/uploads/brief.pdf?sig=abc"))
	assert.Equal(t, "brief.pdf", FileNameFromURL("https://cdn.example.com/uploads/brief.pdf#page=2"))
}

func TestDocumentIcon(t *testing.T) {
	assert.Equal(t, "⎙", DocumentIcon("contract.pdf"))
	assert.Equal(t, "≡", DocumentIcon("brief.DOCX"))
	assert.Equal(t, "▤", DocumentIcon("rates.csv"))
	assert.Equal(t, "⧈", DocumentIcon("assets.zip"))
	assert.Equal(t, "🗎", DocumentIcon("unknown.xyz"))
}
