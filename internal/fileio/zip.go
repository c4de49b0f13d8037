package fileio

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
)

// Archive is an in-memory ZIP archive returned by the service.
type Archive struct {
	reader *zip.Reader
}

func OpenArchive(data []byte) (*Archive, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "opening zip archive")
	}
	return &Archive{reader: r}, nil
}

// Names lists the archive entries in archive order.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.reader.File))
	for _, f := range a.reader.File {
		names = append(names, f.Name)
	}
	return names
}

// ReadFile returns the contents of the named entry.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	for _, f := range a.reader.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", name)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}

// ExtractAll writes every entry below the writer root and returns the
// written paths. Entries escaping the root are rejected.
func (a *Archive) ExtractAll(w *Writer) ([]string, error) {
	written := make([]string, 0, len(a.reader.File))
	for _, f := range a.reader.File {
		name, err := safeName(f.Name)
		if err != nil {
			return written, err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if err := extractOne(f, name, w); err != nil {
			return written, err
		}
		written = append(written, w.PathFor(name))
	}
	return written, nil
}

func extractOne(f *zip.File, name string, w *Writer) error {
	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "opening %s", f.Name)
	}
	defer rc.Close()
	if err := w.WriteStreamToFile(name, rc); err != nil {
		return errors.Wrapf(err, "extracting %s", f.Name)
	}
	return nil
}

func safeName(name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("illegal file path in archive: %s", name)
	}
	return cleaned, nil
}
