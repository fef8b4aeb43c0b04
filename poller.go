package wakeup

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// Callback is invoked by [Poller.Poll] for each ready Wakeup. It runs on the
// polling goroutine, which is expected to be the Wakeup's owner, so it may
// (and usually should) call Acknowledge.
type Callback func(w *Wakeup)

// registration stores per-Wakeup callback information.
type registration struct {
	wakeup   *Wakeup
	callback Callback
}

// Poller multiplexes many Wakeup instances onto a single blocking wait,
// dispatching a callback for each one that is ready.
//
// Register and Unregister are safe to call from any goroutine. Poll must
// only be called by one goroutine at a time. The Poller does not own the
// registered Wakeup instances, and will not close them.
//
// Unregister does NOT guarantee immediate cessation of in-flight callbacks:
// the registration set is copied under a read lock, and callbacks run outside
// of it, so a callback may run once after Unregister returns, if a Poll was
// already in progress.
type Poller struct {
	logger *logiface.Logger[logiface.Event]
	regs   []registration // guarded by mu
	fds    []PollFD       // scratch, Poll only
	cbs    []registration // scratch, Poll only
	mu     sync.RWMutex
	closed atomic.Bool
}

// NewPoller returns an empty Poller, logging using the package logger.
func NewPoller() *Poller {
	return &Poller{logger: getLogger()}
}

// Register adds w to the set waited on by Poll.
func (p *Poller) Register(w *Wakeup, cb Callback) error {
	if w == nil || cb == nil {
		return misuse("register", "nil wakeup or callback")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return ErrPollerClosed
	}

	for _, r := range p.regs {
		if r.wakeup == w {
			return ErrAlreadyRegistered
		}
	}
	p.regs = append(p.regs, registration{wakeup: w, callback: cb})
	return nil
}

// Unregister removes w from the set waited on by Poll.
func (p *Poller) Unregister(w *Wakeup) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, r := range p.regs {
		if r.wakeup == w {
			last := len(p.regs) - 1
			p.regs[i] = p.regs[last]
			p.regs[last] = registration{}
			p.regs = p.regs[:last]
			return nil
		}
	}
	return ErrNotRegistered
}

// Len returns the number of registered Wakeup instances.
func (p *Poller) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.regs)
}

// Poll waits for at least one registered Wakeup to be signaled, or for the
// timeout to elapse (see [Poll] for timeout semantics), then invokes the
// callback of every ready Wakeup. It returns the number of callbacks invoked.
//
// With nothing registered, a finite timeout simply sleeps, while a negative
// timeout could never return, and fails with a [*UsageError] instead.
func (p *Poller) Poll(timeout time.Duration) (int, error) {
	if p.closed.Load() {
		return 0, ErrPollerClosed
	}

	// copy registrations under read lock
	p.mu.RLock()
	p.cbs = append(p.cbs[:0], p.regs...)
	p.mu.RUnlock()

	if len(p.cbs) == 0 && timeout < 0 {
		return 0, misuse("poll", "infinite wait with nothing registered")
	}

	p.fds = p.fds[:0]
	for _, r := range p.cbs {
		p.fds = append(p.fds, r.wakeup.PollFD())
	}

	n, err := Poll(p.fds, timeout)
	if err != nil {
		p.logger.Err().
			Err(err).
			Int(`registered`, len(p.fds)).
			Log(`poller wait failed`)
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	return p.dispatch(), nil
}

// dispatch executes callbacks inline, outside of any lock.
func (p *Poller) dispatch() int {
	var count int
	for i, r := range p.cbs {
		if p.fds[i].Ready() {
			r.callback(r.wakeup)
			count++
		}
		p.cbs[i] = registration{}
	}
	return count
}

// Close marks the poller closed, dropping all registrations.
func (p *Poller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed.CompareAndSwap(false, true) {
		return ErrPollerClosed
	}
	p.regs = nil
	return nil
}
