// Package content provides the request-body producer abstraction: a small
// closed set of content sources (bytes, string, file, URL-encoded form,
// multipart, stream) each exposing a byte length and a way to stream
// itself into a sink. Content sources are an out-of-core collaborator per
// spec.md §1 — stated interface and straightforward adapters, no
// surprises.
package content

import "io"

// Source is a request-body producer. ContentLength reports the exact byte
// count that will be written (used to compute the Content-Length header,
// spec.md invariant I2); a negative length means "unknown, stream to EOF"
// and is only valid for chunked-body-less wire paths. WriteTo streams the
// body to w and returns the number of bytes actually written.
type Source interface {
	ContentLength() int64
	ContentType() string
	WriteTo(w io.Writer) (int64, error)
}
