// Package fileutil holds small filesystem helpers shared by the blob store and
// the upload path.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// HashFile returns the hex SHA-256 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return HashReader(f)
}

// HashReader returns the hex SHA-256 digest of everything read from r.
func HashReader(r io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// TempSibling creates an empty temp file next to dst so a later rename stays
// on the same filesystem. Callers own closing and removing it.
func TempSibling(dst string) (*os.File, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %q: %w", dir, err)
	}
	return os.CreateTemp(dir, ".tmp-"+filepath.Base(dst)+"-*")
}

// WriteAtomic streams r into a temp file beside dst, syncs it, and renames it
// over dst. dst is never observed half-written.
func WriteAtomic(dst string, r io.Reader, mode os.FileMode) (int64, error) {
	tmp, err := TempSibling(dst)
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	written, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		cleanup()
		return 0, err
	}
	if err := FinalizeTemp(tmp, dst, mode); err != nil {
		cleanup()
		return 0, err
	}
	return written, nil
}

// FinalizeTemp syncs and closes tmp, applies mode, and renames it to dst.
func FinalizeTemp(tmp *os.File, dst string, mode os.FileMode) error {
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("rename into %s: %w", dst, err)
	}
	return nil
}
