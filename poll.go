package wakeup

import (
	"math"
	"time"
)

// IOEvents represents the type of I/O events to monitor.
type IOEvents uint32

const (
	// EventRead indicates the file descriptor is ready for reading.
	EventRead IOEvents = 1 << iota
	// EventWrite indicates the file descriptor is ready for writing.
	EventWrite
	// EventError indicates an error condition on the file descriptor.
	EventError
	// EventHangup indicates the peer closed its end of the connection.
	EventHangup
)

// PollFD is a descriptor to wait on, using [Poll]. Revents is set by Poll.
type PollFD struct {
	Fd      int
	Events  IOEvents
	Revents IOEvents
}

// Ready reports whether any of the requested events, or an error condition,
// was reported by the last Poll.
func (p PollFD) Ready() bool {
	return p.Revents&(p.Events|EventError|EventHangup) != 0
}

// Poll waits for any of fds to become ready, or for the timeout to elapse,
// returning the number of entries with a non-zero Revents.
//
// Timeout semantics:
//   - negative: wait indefinitely
//   - zero: check readiness without blocking
//   - positive: rounded up to the next millisecond
//
// Interrupted waits, and waits longer than poll(2) can express, are resumed
// with the remaining time.
func Poll(fds []PollFD, timeout time.Duration) (int, error) {
	for i := range fds {
		fds[i].Revents = 0
	}
	return pollFDs(fds, timeout)
}

// timeoutMillis converts a timeout to poll(2) milliseconds.
func timeoutMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := (timeout + time.Millisecond - 1) / time.Millisecond
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}
