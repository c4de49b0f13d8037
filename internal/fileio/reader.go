package fileio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Reader reads data files, optionally below a root directory (tests).
type Reader struct {
	rootDir string
}

func NewReader() *Reader {
	return &Reader{}
}

// SetRootdir sets the root directory for the reader, useful for testing
func (r *Reader) SetRootdir(path string) {
	r.rootDir = path
}

func (r *Reader) PathFor(filePath string) string {
	if r.rootDir == "" {
		return filePath
	}
	return filepath.Join(r.rootDir, filePath)
}

func (r *Reader) ReadFile(filePath string) ([]byte, error) {
	return os.ReadFile(r.PathFor(filePath))
}

// Open opens the file for streaming and returns its size.
func (r *Reader) Open(filePath string) (*os.File, int64, error) {
	f, err := os.Open(r.PathFor(filePath))
	if err != nil {
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, fi.Size(), nil
}

func (r *Reader) CheckPathExists(filePath string) error {
	if _, err := os.Stat(r.PathFor(filePath)); err != nil {
		return fmt.Errorf("error checking path: %w", err)
	}
	return nil
}

// Dump writes the file contents to w, framed by newlines.
func (r *Reader) Dump(w io.Writer, filePath string) error {
	contents, err := r.ReadFile(filePath)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\n", contents); err != nil {
		return err
	}
	return nil
}
