package content

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// FileSource streams a file from disk. ContentLength is determined by
// os.Stat at construction time, not at WriteTo time, so a file that
// changes size between calls will produce a Content-Length mismatch —
// callers are responsible for not racing the filesystem.
type FileSource struct {
	Path string
	Type string
	size int64
}

// File stats path to determine its size and MIME type (guessed from the
// extension, defaulting to "application/octet-stream") and returns a
// ready-to-use FileSource.
func File(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("content: stat %q: %w", path, err)
	}
	typ := mime.TypeByExtension(filepath.Ext(path))
	if typ == "" {
		typ = "application/octet-stream"
	}
	return &FileSource{Path: path, Type: typ, size: info.Size()}, nil
}

func (f *FileSource) ContentLength() int64 { return f.size }
func (f *FileSource) ContentType() string  { return f.Type }

func (f *FileSource) WriteTo(w io.Writer) (int64, error) {
	file, err := os.Open(f.Path) // #nosec G304 -- caller-supplied request body path
	if err != nil {
		return 0, fmt.Errorf("content: open %q: %w", f.Path, err)
	}
	defer file.Close()
	return io.Copy(w, file)
}

// StreamSource wraps an arbitrary io.Reader whose total length is not
// known in advance. ContentLength reports -1 ("unknown, stream to EOF"),
// so the framer must fall back to chunked transfer or a Connection: close
// body rather than Content-Length for this source.
type StreamSource struct {
	R    io.Reader
	Type string
}

// Stream wraps r as a content Source of unknown length.
func Stream(r io.Reader) *StreamSource {
	return &StreamSource{R: r, Type: "application/octet-stream"}
}

// WithType returns s with its Content-Type set to t.
func (s *StreamSource) WithType(t string) *StreamSource {
	s.Type = t
	return s
}

func (s *StreamSource) ContentLength() int64 { return -1 }
func (s *StreamSource) ContentType() string  { return s.Type }

func (s *StreamSource) WriteTo(w io.Writer) (int64, error) {
	return io.Copy(w, s.R)
}
