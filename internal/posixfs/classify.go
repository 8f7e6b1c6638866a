package posixfs

import (
	"errors"
	"os"
	"syscall"
)

// isDiskFull inspects a write/sync failure for ENOSPC at the syscall
// level.
func isDiskFull(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		var errno syscall.Errno
		if errors.As(pathErr.Err, &errno) {
			return errno == syscall.ENOSPC
		}
	}
	return errors.Is(err, syscall.ENOSPC)
}
