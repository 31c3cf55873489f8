package gateway

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"codecraft-ai/internal/domain/ports/adapter"
)

var _ adapter.TextStream = (*bodyStream)(nil)

const readBufSize = 4096

// bodyStream decodes a chunked UTF-8 body. A multi-byte sequence split across
// reads is held back until its remaining bytes arrive.
type bodyStream struct {
	ctx     context.Context
	body    io.ReadCloser
	buf     []byte
	carry   []byte
	partial strings.Builder
	done    bool
}

func newBodyStream(ctx context.Context, body io.ReadCloser) *bodyStream {
	return &bodyStream{ctx: ctx, body: body, buf: make([]byte, readBufSize)}
}

func (s *bodyStream) Recv() (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}
		n, err := s.body.Read(s.buf)
		if n > 0 {
			data := make([]byte, 0, len(s.carry)+n)
			data = append(data, s.carry...)
			data = append(data, s.buf[:n]...)
			cut := completePrefix(data)
			s.carry = append(s.carry[:0], data[cut:]...)
			if err == io.EOF {
				s.done = true
				return s.emit(flushTail(data)), nil
			}
			if cut > 0 && err == nil {
				return s.emit(string(data[:cut])), nil
			}
			if cut > 0 {
				// deliver what we have; the error resurfaces on the next read
				return s.emit(string(data[:cut])), nil
			}
		}
		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			s.done = true
			if len(s.carry) > 0 {
				tail := flushTail(s.carry)
				s.carry = nil
				return s.emit(tail), nil
			}
			return "", io.EOF
		case s.ctx.Err() != nil:
			return "", s.ctx.Err()
		default:
			return "", &StreamError{Partial: s.partial.String(), Err: err}
		}
	}
}

func (s *bodyStream) Close() error { return s.body.Close() }

func (s *bodyStream) emit(chunk string) string {
	s.partial.WriteString(chunk)
	return chunk
}

// completePrefix returns the length of the longest prefix of b that does not
// end inside a multi-byte sequence.
func completePrefix(b []byte) int {
	n := len(b)
	for i := n - 1; i >= 0 && i >= n-utf8.UTFMax; i-- {
		c := b[i]
		if c < utf8.RuneSelf {
			return n
		}
		if utf8.RuneStart(c) {
			if utf8.FullRune(b[i:]) {
				return n
			}
			return i
		}
	}
	return n
}

// flushTail decodes the final bytes, replacing a truncated sequence with U+FFFD.
func flushTail(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
