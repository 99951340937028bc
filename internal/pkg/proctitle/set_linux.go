//go:build linux

package proctitle

import (
	"errors"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Set renames the current process via PR_SET_NAME. Titles longer than
// MaxLen are cut by the kernel.
func Set(title string) error {
	if title == "" {
		return errors.New("proctitle: empty title")
	}
	if len(os.Args) > 0 {
		os.Args[0] = title
	}

	buf := make([]byte, MaxLen+1)
	copy(buf, title)
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&buf[0])), 0, 0, 0)
}
