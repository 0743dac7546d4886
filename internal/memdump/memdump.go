// Package memdump writes the raw tape contents to a file, for the `jit
// run`/`int run --dump-memory` code paths that need to inspect final VM
// state without a debugger attached.
package memdump

import (
	"os"

	"github.com/pkg/errors"
)

// WriteFile writes mem verbatim to path.
func WriteFile(path string, mem []byte) error {
	if err := os.WriteFile(path, mem, 0o644); err != nil {
		return errors.Wrapf(err, "memdump: writing %s", path)
	}
	return nil
}
