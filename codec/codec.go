package codec

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"matchserver/matcherrors"
)

// DefaultMaxLine bounds a single frame's length. A connection that sends a
// line longer than this is considered misbehaving and is closed.
const DefaultMaxLine = 4096

// Reader decodes newline-delimited JSON envelopes from a stream.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps r, bounding each line to maxLine bytes. A maxLine of 0
// uses DefaultMaxLine.
func NewReader(r io.Reader, maxLine int) *Reader {
	if maxLine <= 0 {
		maxLine = DefaultMaxLine
	}
	// bufio.Scanner's limit is the larger of maxLine and the initial
	// buffer's capacity, so the initial buffer must not exceed maxLine.
	initial := 1024
	if maxLine < initial {
		initial = maxLine
	}
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, initial), maxLine)
	return &Reader{scanner: s}
}

// ReadEnvelope reads and decodes the next frame. It returns io.EOF when the
// underlying stream is exhausted, and matcherrors.ErrLineTooLong when a
// line exceeds the configured bound.
func (r *Reader) ReadEnvelope() (Envelope, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			if err == bufio.ErrTooLong {
				return Envelope{}, matcherrors.ErrLineTooLong
			}
			return Envelope{}, err
		}
		return Envelope{}, io.EOF
	}
	var env Envelope
	if err := json.Unmarshal(r.scanner.Bytes(), &env); err != nil {
		return Envelope{}, fmt.Errorf("codec: malformed frame: %w", err)
	}
	return env, nil
}

// Writer encodes messages as newline-delimited JSON onto a stream.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteMessage marshals v and writes it followed by '\n'.
func (w *Writer) WriteMessage(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("codec: marshal: %w", err)
	}
	data = append(data, '\n')
	_, err = w.w.Write(data)
	return err
}
