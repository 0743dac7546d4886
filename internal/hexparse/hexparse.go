// Package hexparse parses the decimal-or-0x-prefixed integers accepted
// by the debugger REPL (breakpoint addresses, listing focus, memory
// ranges).
package hexparse

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Parse accepts a plain decimal string ("42") or a "0x"/"0X"-prefixed hex
// string ("0x2a") and returns the parsed value.
func Parse(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("hexparse: empty value")
	}

	if rest, ok := stripHexPrefix(s); ok {
		n, err := strconv.ParseInt(rest, 16, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "hexparse: invalid hex value %q", s)
		}
		return int(n), nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "hexparse: invalid decimal value %q", s)
	}
	return int(n), nil
}

func stripHexPrefix(s string) (string, bool) {
	if len(s) > 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		return s[2:], true
	}
	return "", false
}
