package wakeup

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// ChannelKind identifies the OS object backing a [Wakeup].
type ChannelKind uint8

const (
	// KindEventFD is a Linux eventfd, a single descriptor used for both ends.
	KindEventFD ChannelKind = iota + 1
	// KindPipe is a non-blocking, close-on-exec self-pipe.
	KindPipe
)

// String returns the string representation of the channel kind.
func (k ChannelKind) String() string {
	switch k {
	case KindEventFD:
		return "eventfd"
	case KindPipe:
		return "pipe"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// wakeBytes is the 8 byte native endian value 1, as eventfd(2) requires.
var wakeBytes = func() (b [8]byte) {
	binary.NativeEndian.PutUint64(b[:], 1)
	return
}()

// Signaler is the producer half of a [Wakeup]. It is what should be handed
// to other goroutines, as it cannot acknowledge or close.
type Signaler interface {
	Signal()
}

// Wakeup is a cross-goroutine readiness signal, exposed as a pollable file
// descriptor. Any number of goroutines may call [Wakeup.Signal]; a single
// owner waits on the descriptor, and calls [Wakeup.Acknowledge] and
// [Wakeup.Close].
//
// Signals coalesce: while a signal is pending, further signals are no-ops,
// and a single Acknowledge clears any number of them.
type Wakeup struct {
	logger  *logiface.Logger[logiface.Event]
	name    string
	readFd  int
	writeFd int
	kind    ChannelKind
	pending atomic.Uint32 // 1 while a signal is outstanding
	busy    atomic.Uint32 // held by Acknowledge, Wait and Close, owner only
	closed  atomic.Bool
	buf     [64]byte // drain buffer, owner only
}

// New allocates a Wakeup, in the not-signaled state. Failure to allocate the
// readiness channel returns a [*ResourceError].
func New(opts ...Option) (*Wakeup, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	readFd, writeFd, kind, err := createWakeFd(cfg.pipe)
	if err != nil {
		return nil, allocError(err)
	}

	w := &Wakeup{
		logger:  cfg.logger,
		name:    cfg.name,
		readFd:  readFd,
		writeFd: writeFd,
		kind:    kind,
	}
	w.logCreated()
	return w, nil
}

func allocError(err error) error {
	if errors.Is(err, errors.ErrUnsupported) {
		return fmt.Errorf("wakeup: new: %w", err)
	}
	return newResourceError("new", err)
}

// Kind returns the type of OS object backing the Wakeup.
func (w *Wakeup) Kind() ChannelKind {
	return w.kind
}

// Fd returns the read side file descriptor, which becomes readable while a
// signal is pending. It is stable for the life of the Wakeup, and may be
// registered with any poll, epoll or kqueue based loop. Callers must not
// read, write or close it.
func (w *Wakeup) Fd() int {
	return w.readFd
}

// PollFD returns the descriptor in the form accepted by [Poll].
func (w *Wakeup) PollFD() PollFD {
	return PollFD{Fd: w.readFd, Events: EventRead}
}

// Signaler returns the producer-only view of w.
func (w *Wakeup) Signaler() Signaler {
	return signaler{w: w}
}

// Signal marks the Wakeup as pending, making the descriptor readable. It is
// safe to call from any goroutine, concurrently with any other method, any
// number of times. It never blocks and never allocates.
//
// Signal panics with a [*UsageError] if the Wakeup is closed, and with a
// [*ResourceError] if the kernel rejects the write for any reason other than
// back-pressure, since dropping the signal would lose a wakeup.
func (w *Wakeup) Signal() {
	if w.closed.Load() {
		panic(misuse("signal", "wakeup is closed"))
	}
	// only the 0 -> 1 transition touches the kernel object
	if !w.pending.CompareAndSwap(0, 1) {
		return
	}
	for {
		_, err := writeFD(w.writeFd, wakeBytes[:])
		if err == nil || isWouldBlock(err) {
			// EAGAIN means eventfd is saturated or the pipe is full,
			// either way the descriptor is already readable
			return
		}
		if isInterrupted(err) {
			continue
		}
		err = newResourceError("signal", err)
		w.logFatal("signal", err)
		panic(err)
	}
}

// Acknowledge clears the pending state, making the descriptor non-readable
// again. One call is sufficient regardless of how many signals preceded it.
//
// Only the owner may call Acknowledge. Overlapping it with another owner call
// (Acknowledge, Wait or Close) panics with a [*UsageError], as does calling
// it after Close.
//
// Any Signal that happens before Acknowledge returns is consumed by it, so
// the owner must process its work (e.g. drain its inbox) after acknowledging,
// not before.
func (w *Wakeup) Acknowledge() {
	if !w.busy.CompareAndSwap(0, 1) {
		panic(misuse("acknowledge", "concurrent call"))
	}
	defer w.busy.Store(0)

	if w.closed.Load() {
		panic(misuse("acknowledge", "wakeup is closed"))
	}

	// drain first: clearing pending before the descriptor would allow a
	// racing Signal to write, then have that write consumed here, leaving
	// pending set with nothing readable
	w.drain()
	w.pending.Store(0)
}

func (w *Wakeup) drain() {
	for {
		n, err := readFD(w.readFd, w.buf[:])
		switch {
		case err == nil && n > 0:
			if w.kind == KindEventFD {
				// eventfd resets its counter on read
				return
			}
			continue
		case err == nil:
			// EOF, not possible while we hold the write end
			return
		case isWouldBlock(err):
			return
		case isInterrupted(err):
			continue
		}
		err = newResourceError("acknowledge", err)
		w.logFatal("acknowledge", err)
		panic(err)
	}
}

// Pending reports whether a signal is outstanding. It is a snapshot, and is
// intended for diagnostics and tests.
func (w *Wakeup) Pending() bool {
	return w.pending.Load() != 0
}

// Wait blocks until the Wakeup is signaled, or the timeout elapses, returning
// true if it is signaled. A negative timeout waits indefinitely, and a zero
// timeout does not block. Wait does not acknowledge.
//
// Wait is an owner call, overlapping it with Acknowledge or Close returns a
// [*UsageError].
func (w *Wakeup) Wait(timeout time.Duration) (bool, error) {
	if !w.busy.CompareAndSwap(0, 1) {
		return false, misuse("wait", "concurrent call")
	}
	defer w.busy.Store(0)

	if w.closed.Load() {
		return false, misuse("wait", "wakeup is closed")
	}
	fds := [1]PollFD{w.PollFD()}
	n, err := Poll(fds[:], timeout)
	if err != nil {
		return false, err
	}
	return n > 0 && fds[0].Ready(), nil
}

// IsSignaled is a non-blocking poll of the descriptor. It panics if the poll
// fails, which is only possible on misuse (e.g. after Close).
func (w *Wakeup) IsSignaled() bool {
	ok, err := w.Wait(0)
	if err != nil {
		panic(err)
	}
	return ok
}

// Close releases the OS resources. It is legal while a signal is pending,
// but the caller must ensure no other goroutine may still call Signal.
// A second Close, or one overlapping Acknowledge or Wait, returns a
// [*UsageError], and leaves the Wakeup as it was.
func (w *Wakeup) Close() error {
	if !w.busy.CompareAndSwap(0, 1) {
		return misuse("close", "concurrent call")
	}
	defer w.busy.Store(0)

	if !w.closed.CompareAndSwap(false, true) {
		return misuse("close", "already closed")
	}

	pending := w.pending.Load() != 0

	err := closeFD(w.readFd)
	if w.writeFd != w.readFd {
		err = errors.Join(err, closeFD(w.writeFd))
	}
	if err != nil {
		err = fmt.Errorf("wakeup: close: %w", err)
	}

	w.logClosed(pending, err)
	return err
}

type signaler struct {
	w *Wakeup
}

func (s signaler) Signal() {
	s.w.Signal()
}
