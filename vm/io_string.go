package vm

import (
	"io"
	"strings"
)

// StdinString feeds `,` input from an in-memory buffer, used by tests.
// Exhausting the buffer reports io.EOF.
type StdinString struct {
	r *strings.Reader
}

// NewStdinString returns a StdinString that yields the bytes of s in order.
func NewStdinString(s string) *StdinString {
	return &StdinString{r: strings.NewReader(s)}
}

func (s *StdinString) ReadByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, io.EOF
	}
	return b, nil
}

// StdoutString accumulates `.` output into an in-memory buffer so tests
// can assert on it directly.
type StdoutString struct {
	buf strings.Builder
}

// NewStdoutString returns an empty StdoutString.
func NewStdoutString() *StdoutString {
	return &StdoutString{}
}

func (s *StdoutString) WriteByte(b byte) error {
	return s.buf.WriteByte(b)
}

// String returns everything written so far.
func (s *StdoutString) String() string {
	return s.buf.String()
}
