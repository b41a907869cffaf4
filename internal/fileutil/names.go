package fileutil

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"docmill/internal/textutil"
)

var titleCaser = cases.Title(language.English, cases.NoLower)

// DisplayTitle derives a human-facing title from a source path: the base name
// without extension, separators normalized to spaces, title-cased.
func DisplayTitle(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", ".", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Untitled"
	}
	return titleCaser.String(base)
}

// DestinationName builds the output filename for a conversion: the sanitized
// source stem with the target format's extension.
func DestinationName(sourcePath, format string) string {
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	stem = textutil.SanitizeFileName(stem)
	if stem == "" {
		stem = "document"
	}
	ext := strings.TrimPrefix(strings.TrimSpace(format), ".")
	if ext == "" {
		ext = "pdf"
	}
	return stem + "." + strings.ToLower(ext)
}
