package util

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

const fallbackFileName = "document"

// MaxFileNameBytes bounds the sanitized name so storage keys stay under
// filesystem and S3 name limits.
const MaxFileNameBytes = 100

// SanitizeFileName reduces an uploaded file name to a single safe path
// segment: directories are dropped, traversal sequences and control
// characters removed, an empty result replaced by a placeholder, and long
// names shortened to MaxFileNameBytes with the extension kept.
func SanitizeFileName(name string) string {
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "\\", "/")
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		s = s[idx+1:]
	}
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", ".")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.Trim(s, ". ")
	if s == "" {
		return fallbackFileName
	}
	return truncateName(s, MaxFileNameBytes)
}

func truncateName(s string, max int) string {
	if len(s) <= max {
		return s
	}
	ext := filepath.Ext(s)
	if len(ext) > max/4 {
		ext = ""
	}
	base := truncateBytes(strings.TrimSuffix(s, ext), max-len(ext))
	base = strings.TrimRight(base, ". ")
	if base == "" {
		base = fallbackFileName
	}
	return base + ext
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
