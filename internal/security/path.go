package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateAttachmentPath checks that a user-supplied attachment path points
// at a readable regular file and does not smuggle directory traversal
// components.
func ValidateAttachmentPath(path string) error {
	if path == "" {
		return fmt.Errorf("attachment path cannot be empty")
	}

	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("attachment not readable: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("attachment path is a directory: %s", path)
	}

	return nil
}
