package fileio

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Writer writes files below a root directory. An empty root is the
// current working directory.
type Writer struct {
	rootDir string
}

// NewWriter creates a new writer
func NewWriter() *Writer {
	return &Writer{}
}

// SetRootdir sets the root directory for the writer
func (w *Writer) SetRootdir(path string) {
	w.rootDir = path
}

// PathFor returns the full path for the provided file, useful for using functions
// and libraries that don't work with the fileio.Writer
func (w *Writer) PathFor(filePath string) string {
	return filepath.Join(w.rootDir, filePath)
}

// WriteFile writes the file at the provided path, creating parent directories.
func (w *Writer) WriteFile(filePath string, data []byte) error {
	target := w.PathFor(filePath)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", target)
	}
	return os.WriteFile(target, data, 0644)
}

// WriteStreamToFile writes the stream to the file at the provided path.
// A failure to close the file is reported when the copy itself succeeded.
func (w *Writer) WriteStreamToFile(filePath string, stream io.Reader) (err error) {
	target := w.PathFor(filePath)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", target)
	}
	outFile, err := os.Create(target)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := outFile.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "closing %s", target)
		}
	}()
	if _, err := io.Copy(outFile, stream); err != nil {
		return errors.Wrapf(err, "writing %s", target)
	}
	return nil
}
