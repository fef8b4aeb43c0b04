//go:build linux || darwin

package wakeup

import (
	"fmt"
	"time"

	"fortio.org/safecast"
	"golang.org/x/sys/unix"
)

// pollSyscall is replaced in tests.
var pollSyscall = unix.Poll

func pollFDs(fds []PollFD, timeout time.Duration) (int, error) {
	var (
		one  [1]unix.PollFd
		pfds []unix.PollFd
	)
	if len(fds) <= len(one) {
		pfds = one[:len(fds)]
	} else {
		pfds = make([]unix.PollFd, len(fds))
	}
	for i, fd := range fds {
		v, err := safecast.Conv[int32](fd.Fd)
		if err != nil {
			return 0, fmt.Errorf("wakeup: poll: fd %d: %w", fd.Fd, err)
		}
		pfds[i] = unix.PollFd{Fd: v, Events: eventsToPoll(fd.Events)}
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		n, err := pollSyscall(pfds, timeoutMillis(timeout))
		if err != nil {
			if !isInterrupted(err) {
				return 0, fmt.Errorf("wakeup: poll: %w", err)
			}
			if timeout > 0 {
				timeout = time.Until(deadline)
				if timeout <= 0 {
					return 0, nil
				}
			}
			continue
		}
		if n == 0 && timeout > 0 {
			// timeouts beyond the poll(2) range are capped, resume until the deadline
			if timeout = time.Until(deadline); timeout > 0 {
				continue
			}
		}
		if n > 0 {
			for i := range pfds {
				fds[i].Revents = pollToEvents(pfds[i].Revents)
			}
		}
		return n, nil
	}
}

// eventsToPoll converts IOEvents to poll(2) event flags.
func eventsToPoll(events IOEvents) int16 {
	var pollEvents int16
	if events&EventRead != 0 {
		pollEvents |= unix.POLLIN
	}
	if events&EventWrite != 0 {
		pollEvents |= unix.POLLOUT
	}
	return pollEvents
}

// pollToEvents converts poll(2) returned event flags to IOEvents.
func pollToEvents(pollEvents int16) IOEvents {
	var events IOEvents
	if pollEvents&unix.POLLIN != 0 {
		events |= EventRead
	}
	if pollEvents&unix.POLLOUT != 0 {
		events |= EventWrite
	}
	if pollEvents&(unix.POLLERR|unix.POLLNVAL) != 0 {
		events |= EventError
	}
	if pollEvents&unix.POLLHUP != 0 {
		events |= EventHangup
	}
	return events
}
