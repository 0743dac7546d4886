//go:build arm64

package jit

import (
	"bufio"
	"io"

	"github.com/ebitengine/purego"
)

// thunks bridges the JIT's generated machine code back into Go for `.`
// and `,`. purego.NewCallback turns each closure into a C-ABI function
// pointer the generated code can BLR into directly, with no cgo involved.
type thunks struct {
	out *bufio.Writer
	in  *bufio.Reader

	outputPtr uintptr
	inputPtr  uintptr
}

func newThunks(stdout io.Writer, stdin io.Reader) *thunks {
	t := &thunks{
		out: bufio.NewWriter(stdout),
		in:  bufio.NewReader(stdin),
	}
	t.outputPtr = purego.NewCallback(func(b byte) {
		t.out.WriteByte(b)
		t.out.Flush()
	})
	t.inputPtr = purego.NewCallback(func() byte {
		b, err := t.in.ReadByte()
		if err != nil || b == '\n' {
			return 0
		}
		return b
	})
	return t
}
