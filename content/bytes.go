package content

import "io"

// BytesSource is a fixed in-memory byte buffer content source.
type BytesSource struct {
	Data []byte
	Type string // Content-Type, defaults to "application/octet-stream"
}

// Bytes wraps a byte slice as a content Source.
func Bytes(data []byte) *BytesSource {
	return &BytesSource{Data: data, Type: "application/octet-stream"}
}

// WithType returns b with its Content-Type set to t.
func (b *BytesSource) WithType(t string) *BytesSource {
	b.Type = t
	return b
}

func (b *BytesSource) ContentLength() int64 { return int64(len(b.Data)) }
func (b *BytesSource) ContentType() string  { return b.Type }

func (b *BytesSource) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Data)
	return int64(n), err
}

// StringSource is a fixed in-memory string content source.
type StringSource struct {
	Text string
	Type string
}

// String wraps a string as a content Source with Content-Type "text/plain; charset=utf-8".
func String(text string) *StringSource {
	return &StringSource{Text: text, Type: "text/plain; charset=utf-8"}
}

// WithType returns s with its Content-Type set to t.
func (s *StringSource) WithType(t string) *StringSource {
	s.Type = t
	return s
}

func (s *StringSource) ContentLength() int64 { return int64(len(s.Text)) }
func (s *StringSource) ContentType() string  { return s.Type }

func (s *StringSource) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, s.Text)
	return int64(n), err
}
