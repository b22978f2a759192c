package render

import (
	"net/url"
	"path"
	"strings"

	"gigchat/internal/constants"
)

// DocumentIcon returns the glyph shown next to a document message, keyed
// by file extension.
func DocumentIcon(fileName string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(fileName), ".")) {
	case "pdf":
		return "⎙"
	case "doc", "docx", "odt":
		return "≡"
	case "xls", "xlsx", "csv", "ods":
		return "▤"
	case "ppt", "pptx", "odp":
		return "▣"
	case "zip", "rar", "7z", "tar", "gz":
		return "⧈"
	default:
		return "🗎"
	}
}

// ViewerURL builds the external preview URL for a document: Office formats
// go through the Office viewer, everything else through the generic
// document viewer.
func ViewerURL(fileURL string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(stripQuery(fileURL)), "."))
	switch ext {
	case "doc", "docx", "xls", "xlsx", "ppt", "pptx":
		return constants.OfficeViewerBaseURL + url.QueryEscape(fileURL)
	default:
		return constants.DocsViewerBaseURL + url.QueryEscape(fileURL)
	}
}

// FileNameFromURL extracts the base file name of a media URL, used as the
// key for the download-once flag.
func FileNameFromURL(fileURL string) string {
	return path.Base(stripQuery(fileURL))
}

func stripQuery(fileURL string) string {
	if i := strings.IndexAny(fileURL, "?#"); i >= 0 {
		return fileURL[:i]
	}
	return fileURL
}
