package vm

import (
	"bufio"
	"io"
)

// StdinConsole reads `,` input from a real input stream (normally
// os.Stdin), optionally printing a one-time prompt before the first read.
// A source newline is delivered to the VM as 0x00; string-backed input
// (StdinString) passes every byte through unchanged.
type StdinConsole struct {
	r        *bufio.Reader
	w        io.Writer
	prompt   string
	prompted bool
}

// NewStdinConsole wraps r. If prompt is non-empty it is written to w once,
// immediately before the first byte is read.
func NewStdinConsole(r io.Reader, w io.Writer, prompt string) *StdinConsole {
	return &StdinConsole{r: bufio.NewReader(r), w: w, prompt: prompt}
}

func (s *StdinConsole) ReadByte() (byte, error) {
	if !s.prompted {
		s.prompted = true
		if s.prompt != "" && s.w != nil {
			io.WriteString(s.w, s.prompt)
		}
	}
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b == '\n' {
		b = 0x00
	}
	return b, nil
}

// StdoutConsole writes `.` output directly to a real output stream
// (normally os.Stdout), flushing after every byte so interactive programs
// see their own output immediately.
type StdoutConsole struct {
	w *bufio.Writer
}

// NewStdoutConsole wraps w.
func NewStdoutConsole(w io.Writer) *StdoutConsole {
	return &StdoutConsole{w: bufio.NewWriter(w)}
}

func (s *StdoutConsole) WriteByte(b byte) error {
	if err := s.w.WriteByte(b); err != nil {
		return err
	}
	return s.w.Flush()
}
