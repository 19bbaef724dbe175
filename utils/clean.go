package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

// maxFileNameLen keeps generated names well under common path limits.
const maxFileNameLen = 200

var illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

func CleanDirName(input string) string {
	cleaned := illegalChars.ReplaceAllString(input, "_")

	cleaned = strings.TrimSpace(cleaned)

	return cleaned
}

// CleanFileName sanitizes a novel title for use as a file name, clamping
// overly long titles while preserving the extension.
func CleanFileName(input string) string {
	cleaned := CleanDirName(input)
	if cleaned == "" {
		return "unnamed"
	}
	if len(cleaned) <= maxFileNameLen {
		return cleaned
	}

	ext := filepath.Ext(cleaned)
	base := strings.TrimSuffix(cleaned, ext)
	if len(ext) >= maxFileNameLen {
		return cleaned[:maxFileNameLen]
	}
	return base[:maxFileNameLen-len(ext)] + ext
}
