package wire

import (
	"bytes"
	"io"
	"time"

	"github.com/soheilmv/mvnet/wireerr"
)

// rawReadSize is the chunk size ReceiverHelper reads from the underlying
// stream into its residual buffer. It stands in for "the socket's receive
// buffer" spec.md §4.4 references.
const rawReadSize = 4096

// spinInterval is the polling granularity of the zero-byte-read spin wait
// spec.md §4.4 specifies.
const spinInterval = 10 * time.Millisecond

// ReceiverHelper is a line-oriented buffered reader over a connection-level
// stream. read_line returns bytes through and including the first '\n' (or
// through EOF); Read drains any residual buffered bytes before touching the
// underlying stream — this residual-first discipline matters because the
// status/header reader may have buffered bytes belonging to the body.
type ReceiverHelper struct {
	src     io.Reader
	residual []byte
	deadline time.Time // zero means no deadline
}

// NewReceiverHelper wraps src. deadline, if non-zero, bounds the total time
// ReadLine/Read may spend spin-waiting for data (spec.md §4.4).
func NewReceiverHelper(src io.Reader, deadline time.Time) *ReceiverHelper {
	return &ReceiverHelper{src: src, deadline: deadline}
}

func (r *ReceiverHelper) fill() error {
	buf := make([]byte, rawReadSize)
	for {
		n, err := r.src.Read(buf)
		if n > 0 {
			r.residual = buf[:n]
			return nil
		}
		if err != nil {
			return err
		}
		// n == 0, err == nil: spin-wait per spec.md §4.4.
		if !r.deadline.IsZero() && time.Now().After(r.deadline) {
			return wireerr.NewReceiveFailure(io.ErrNoProgress)
		}
		time.Sleep(spinInterval)
	}
}

// ReadLine reads bytes up through and including the first '\n', or through
// EOF if the stream ends first. A returned io.EOF alongside a non-empty
// line means the stream ended without a trailing newline.
func (r *ReceiverHelper) ReadLine() ([]byte, error) {
	var line []byte
	for {
		if len(r.residual) == 0 {
			if err := r.fill(); err != nil {
				if err == io.EOF {
					return line, io.EOF
				}
				return line, wireerr.NewReceiveFailure(err)
			}
		}
		idx := bytes.IndexByte(r.residual, '\n')
		if idx == -1 {
			line = append(line, r.residual...)
			r.residual = nil
			continue
		}
		line = append(line, r.residual[:idx+1]...)
		r.residual = r.residual[idx+1:]
		return line, nil
	}
}

// Read implements io.Reader, draining residual bytes before reading from
// the underlying stream.
func (r *ReceiverHelper) Read(p []byte) (int, error) {
	if len(r.residual) > 0 {
		n := copy(p, r.residual)
		r.residual = r.residual[n:]
		return n, nil
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := r.src.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
		if !r.deadline.IsZero() && time.Now().After(r.deadline) {
			return 0, wireerr.NewReceiveFailure(io.ErrNoProgress)
		}
		time.Sleep(spinInterval)
	}
}
