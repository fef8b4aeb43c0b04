// Package wakeup provides a cross-goroutine wakeup primitive for event
// loops, exposed as a pollable file descriptor.
//
// # Semantics
//
// A [Wakeup] is either pending or not. [Wakeup.Signal] makes it pending,
// and may be called from any goroutine, any number of times, without ever
// blocking. [Wakeup.Acknowledge] clears it, and is called by the single
// owner, typically right after its loop wakes. Any number of signals
// collapse into one pending state, so one acknowledgement always suffices.
//
// The descriptor returned by [Wakeup.Fd] (or [Wakeup.PollFD]) is readable
// exactly while the Wakeup is pending, which allows it to be multiplexed
// with other I/O, using [Poll], a [Poller], or any foreign poll, epoll or
// kqueue based loop.
//
// # Platform Support
//
//   - Linux: eventfd, or a self-pipe with [WithPipe]
//   - macOS: self-pipe
//   - others: [New] fails with an error wrapping errors.ErrUnsupported
//
// # Ownership
//
// Only the owner may call Acknowledge, Wait and Close. Producers should be
// given the [Signaler] returned by [Wakeup.Signaler]. Misuse which can be
// detected cheaply, such as overlapping owner calls or use after close,
// fails loudly, with a [*UsageError].
//
// A typical consumer loop:
//
//	for !quit.Load() {
//	    if _, err := w.Wait(-1); err != nil {
//	        return err
//	    }
//	    w.Acknowledge()
//	    drainInbox()
//	}
package wakeup
