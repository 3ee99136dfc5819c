package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// Characters invalid in filenames on most filesystems
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	// Anything outside a conservative URL-safe set
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	// Runs of separators left behind by replacement
	repeatedDashes = regexp.MustCompile(`-{2,}`)
)

const maxNameLength = 120

// SanitizeFilename turns a client-supplied upload name into a safe, URL-friendly
// base name. Directory components are discarded and the extension is lowercased.
func SanitizeFilename(filename string) string {
	// Clients on Windows send backslash paths
	filename = strings.ReplaceAll(filename, `\`, "/")
	filename = filepath.Base(filename)
	if filename == "." || filename == "/" {
		filename = ""
	}

	filename = invalidFilenameChars.ReplaceAllString(filename, "")
	filename = strings.TrimSpace(filename)

	ext := strings.ToLower(filepath.Ext(filename))
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))

	stem = unsafeChars.ReplaceAllString(stem, "-")
	stem = repeatedDashes.ReplaceAllString(stem, "-")
	stem = strings.Trim(stem, "-.")
	ext = unsafeChars.ReplaceAllString(ext, "")

	// Limit length, leaving room for the generated prefix
	if len(stem) > maxNameLength {
		stem = strings.TrimRight(stem[:maxNameLength], "-.")
	}

	if stem == "" {
		stem = "image"
	}

	return stem + ext
}

// HasExtension reports whether filename ends with one of exts, case-insensitively.
func HasExtension(filename string, exts ...string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range exts {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
