//go:build linux

package wakeup

import (
	"golang.org/x/sys/unix"
)

const (
	efdCloexec  = unix.EFD_CLOEXEC
	efdNonblock = unix.EFD_NONBLOCK
)

// createWakeFd creates an eventfd for wake-up notifications (Linux), or a
// self-pipe if pipe is set. An eventfd is returned as both read and write
// ends.
func createWakeFd(pipe bool) (int, int, ChannelKind, error) {
	if pipe {
		r, w, err := createWakePipe()
		return r, w, KindPipe, err
	}
	fd, err := unix.Eventfd(0, efdCloexec|efdNonblock)
	if err != nil {
		return -1, -1, 0, err
	}
	return fd, fd, KindEventFD, nil
}
