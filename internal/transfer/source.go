package transfer

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Source is a random-access view of the bytes being transferred.
type Source interface {
	io.ReaderAt
	Size() int64
	ContentType() string
}

// FileSource is a Source backed by an open file.
type FileSource struct {
	file        *os.File
	size        int64
	contentType string
}

// OpenFile opens path for transfer. The caller must Close the source.
func OpenFile(path, contentType string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("source %s is a directory", path)
	}
	return &FileSource{file: f, size: info.Size(), contentType: contentType}, nil
}

func (s *FileSource) ReadAt(p []byte, off int64) (int, error) { return s.file.ReadAt(p, off) }

func (s *FileSource) Size() int64 { return s.size }

func (s *FileSource) ContentType() string { return s.contentType }

// Name returns the underlying file path.
func (s *FileSource) Name() string { return s.file.Name() }

// Close releases the file handle.
func (s *FileSource) Close() error { return s.file.Close() }

// BytesSource is an in-memory Source.
type BytesSource struct {
	*bytes.Reader
	contentType string
}

// NewBytesSource wraps data as a Source.
func NewBytesSource(data []byte, contentType string) *BytesSource {
	return &BytesSource{Reader: bytes.NewReader(data), contentType: contentType}
}

func (s *BytesSource) ContentType() string { return s.contentType }
