package wire

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/soheilmv/mvnet/wireerr"
)

// chunkedReader decodes an HTTP/1.1 "Transfer-Encoding: chunked" body per
// RFC 7230: a hex size line, that many bytes, a CRLF, repeated until a
// zero-size chunk, then an (ignored) trailer section up to the final blank
// line.
type chunkedReader struct {
	r         *ReceiverHelper
	remaining int64 // bytes left in the current chunk; -1 means "need a new size line"
	done      bool
}

func newChunkedReader(r *ReceiverHelper) *chunkedReader {
	return &chunkedReader{r: r, remaining: -1}
}

func (c *chunkedReader) nextChunkSize() error {
	line, err := c.r.ReadLine()
	if err != nil && err != io.EOF {
		return err
	}
	sizeStr := strings.TrimSpace(string(line))
	if idx := strings.IndexByte(sizeStr, ';'); idx != -1 {
		sizeStr = sizeStr[:idx] // drop chunk extensions
	}
	if sizeStr == "" {
		return wireerr.NewReceiveFailure(io.ErrUnexpectedEOF)
	}
	n, err := strconv.ParseInt(sizeStr, 16, 64)
	if err != nil {
		return wireerr.NewReceiveFailure(err)
	}
	c.remaining = n
	return nil
}

func (c *chunkedReader) consumeTrailer() error {
	for {
		line, err := c.r.ReadLine()
		if err != nil && err != io.EOF {
			return err
		}
		trimmed := bytes.TrimRight(line, "\r\n")
		if len(trimmed) == 0 {
			return nil
		}
		if err == io.EOF {
			return nil
		}
	}
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if c.done {
		return 0, io.EOF
	}
	if c.remaining == -1 {
		if err := c.nextChunkSize(); err != nil {
			return 0, err
		}
	}
	if c.remaining == 0 {
		if err := c.consumeTrailer(); err != nil {
			return 0, err
		}
		c.done = true
		return 0, io.EOF
	}

	toRead := int64(len(p))
	if toRead > c.remaining {
		toRead = c.remaining
	}
	n, err := c.r.Read(p[:toRead])
	c.remaining -= int64(n)
	if err != nil {
		return n, err
	}
	if c.remaining == 0 {
		// Consume the chunk-terminating CRLF.
		if _, err := c.r.ReadLine(); err != nil && err != io.EOF {
			return n, err
		}
		c.remaining = -1
	}
	return n, nil
}
