package privacy

import (
	"strings"

	"gigchat/internal/constants"
)

// MaskID masks a user or conversation identifier for logging, keeping the
// trailing characters so correlated log lines stay matchable.
// Example: "64f1c2a9b37e" -> "********b37e"
func MaskID(id string) string {
	if id == "" {
		return ""
	}
	keep := constants.DefaultIDMaskLength / 2
	if len(id) <= keep {
		return strings.Repeat("*", len(id))
	}
	return strings.Repeat("*", len(id)-keep) + id[len(id)-keep:]
}

// MaskFileName hides the base name of a media file while keeping the
// extension, which is what debugging usually needs.
// Example: "contract-final.pdf" -> "c***.pdf"
func MaskFileName(name string) string {
	if name == "" {
		return ""
	}
	dot := strings.LastIndex(name, ".")
	if dot <= 0 {
		return string(name[0]) + "***"
	}
	return string(name[0]) + "***" + name[dot:]
}
