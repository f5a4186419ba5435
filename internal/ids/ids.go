// Package ids generates row identifiers and blob paths.
package ids

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator produces globally unique identifiers.
type Generator interface {
	NewID() string
}

// UUIDGenerator issues random (v4) UUID strings.
type UUIDGenerator struct{}

// NewID returns a new random UUID.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// FilePath builds the storage path {ownerID}/{unixMillis}-{id}.{ext} for an
// uploaded file. The extension comes from fileName and defaults to "bin".
func FilePath(gen Generator, ownerID, fileName string, now time.Time) string {
	if gen == nil {
		gen = UUIDGenerator{}
	}
	return ownerID + "/" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + gen.NewID() + "." + Extension(fileName)
}

// Extension returns the lowercased extension of name without the dot, or "bin".
func Extension(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}

// IsValid reports whether value parses as a UUID.
func IsValid(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
