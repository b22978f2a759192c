package models

import "strings"

// KindFromContentType classifies a declared MIME type into a media kind.
func KindFromContentType(contentType string) MediaKind {
	switch {
	case contentType == "":
		return MediaKindNone
	case strings.HasPrefix(contentType, "image/"):
		return MediaKindImage
	case strings.HasPrefix(contentType, "video/"):
		return MediaKindVideo
	case strings.HasPrefix(contentType, "audio/"):
		return MediaKindAudio
	default:
		return MediaKindDocument
	}
}

// KindFromExtension classifies a file extension (without the dot) into a
// media kind. Unknown extensions count as documents.
func KindFromExtension(ext string) MediaKind {
	switch strings.ToLower(ext) {
	case "jpg", "jpeg", "png", "gif", "webp", "bmp":
		return MediaKindImage
	case "mp4", "mov", "webm", "avi", "mkv":
		return MediaKindVideo
	case "wav", "mp3", "ogg", "m4a", "aac", "flac":
		return MediaKindAudio
	case "":
		return MediaKindNone
	default:
		return MediaKindDocument
	}
}
