package content

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
)

// FormSource is an application/x-www-form-urlencoded body built from key/value
// pairs, encoded once at construction so ContentLength is exact.
type FormSource struct {
	encoded []byte
}

// Form builds a FormSource from values, encoding in the stable order
// url.Values.Encode produces (sorted by key).
func Form(values url.Values) *FormSource {
	return &FormSource{encoded: []byte(values.Encode())}
}

func (f *FormSource) ContentLength() int64 { return int64(len(f.encoded)) }
func (f *FormSource) ContentType() string  { return "application/x-www-form-urlencoded" }

func (f *FormSource) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.encoded)
	return int64(n), err
}

// MultipartField is one field of a MultipartSource: either a plain form
// field (Filename == "") or a file part.
type MultipartField struct {
	Name     string
	Filename string // empty for a plain field
	Content  Source
}

// MultipartSource streams a multipart/form-data body. Per spec.md §9, the
// source itself frames "--boundary\r\nContent-Disposition: ...\r\n\r\n<body>\r\n"
// segments and must match its own precomputed ContentLength exactly, so the
// boundary and every field are built once at construction time via
// mime/multipart's own writer against a byte buffer.
type MultipartSource struct {
	boundary string
	body     []byte
}

// Multipart builds a MultipartSource from fields, each written in order via
// mime/multipart.Writer so escaping and boundary framing follow RFC 2046
// exactly as the standard library implements it.
func Multipart(fields []MultipartField) (*MultipartSource, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		var part io.Writer
		var err error
		if f.Filename != "" {
			part, err = w.CreateFormFile(f.Name, f.Filename)
		} else {
			part, err = w.CreateFormField(f.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("content: multipart field %q: %w", f.Name, err)
		}
		if f.Content != nil {
			if _, err := f.Content.WriteTo(part); err != nil {
				return nil, fmt.Errorf("content: multipart field %q: %w", f.Name, err)
			}
		}
	}

	boundary := w.Boundary()
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("content: multipart: %w", err)
	}

	return &MultipartSource{boundary: boundary, body: buf.Bytes()}, nil
}

func (m *MultipartSource) ContentLength() int64 { return int64(len(m.body)) }

func (m *MultipartSource) ContentType() string {
	return "multipart/form-data; boundary=" + m.boundary
}

func (m *MultipartSource) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(m.body)
	return int64(n), err
}
