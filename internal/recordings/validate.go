package recordings

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"meetscribe/internal/services"
)

// DetectMimeType sniffs the media type of the file at path, without parameters.
func DetectMimeType(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect mime type: %w", err)
	}
	return baseMediaType(mtype.String()), nil
}

func baseMediaType(value string) string {
	value = strings.TrimSpace(value)
	if parsed, _, err := mime.ParseMediaType(value); err == nil {
		return parsed
	}
	before, _, _ := strings.Cut(value, ";")
	return strings.ToLower(strings.TrimSpace(before))
}

// TypeAllowed reports whether mimeType matches one of allowed. Entries ending
// in "/" or "/*" match a whole top-level type; others must match exactly.
func TypeAllowed(mimeType string, allowed []string) bool {
	mimeType = baseMediaType(mimeType)
	if mimeType == "" {
		return false
	}
	for _, entry := range allowed {
		entry = strings.ToLower(strings.TrimSpace(entry))
		switch {
		case strings.HasSuffix(entry, "/*"):
			if strings.HasPrefix(mimeType, strings.TrimSuffix(entry, "*")) {
				return true
			}
		case strings.HasSuffix(entry, "/"):
			if strings.HasPrefix(mimeType, entry) {
				return true
			}
		case entry == mimeType:
			return true
		}
	}
	return false
}

// ValidateUpload checks size bounds and the media type.
func ValidateUpload(size, maxSize int64, mimeType string, allowed []string) error {
	if size <= 0 {
		return services.Wrap(services.ErrValidation, "recordings", "validate upload", "file is empty", nil)
	}
	if maxSize > 0 && size > maxSize {
		return services.Wrap(services.ErrValidation, "recordings", "validate upload",
			fmt.Sprintf("file is %d bytes; limit is %d bytes", size, maxSize), nil)
	}
	if !TypeAllowed(mimeType, allowed) {
		return services.Wrap(services.ErrValidation, "recordings", "validate upload",
			fmt.Sprintf("unsupported media type %q", mimeType), nil)
	}
	return nil
}

var titleCaser = cases.Title(language.English)

// DefaultTitle derives a display title from a file name: the extension is
// dropped, separators become spaces, and words are title-cased.
func DefaultTitle(fileName string) string {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.':
			return ' '
		}
		return r
	}, base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Untitled Recording"
	}
	return titleCaser.String(base)
}
