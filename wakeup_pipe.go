//go:build linux || darwin

package wakeup

import (
	"golang.org/x/sys/unix"
)

// createWakePipe creates a non-blocking, close-on-exec pipe, returning the
// read end and the write end. A full pipe is already readable, so writes
// failing with EAGAIN lose nothing.
func createWakePipe() (int, int, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return -1, -1, err
	}

	// on failure, close both pipe ends to avoid resource leak
	cleanup := func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	}

	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])

	if err := unix.SetNonblock(fds[0], true); err != nil {
		cleanup()
		return -1, -1, err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		cleanup()
		return -1, -1, err
	}

	return fds[0], fds[1], nil
}
