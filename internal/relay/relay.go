// Package relay implements a token relay network, used to stress test the
// wakeup package with many goroutines signaling each other's Wakeup.
//
// A fixed number of tokens is passed between randomly chosen worker
// contexts, each hop decrementing the token's TTL, until every token is
// retired. The last retirement signals a completion Wakeup, releasing the
// coordinator, which then stops and joins every worker.
package relay

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-wakeup"
	"github.com/joeycumines/logiface"
	"golang.org/x/sync/errgroup"
)

type (
	// Result summarises a completed (or cancelled) run.
	Result struct {
		Kind     wakeup.ChannelKind
		Seed     uint64
		Contexts int
		Tokens   int
		TTL      int
		// Hops is the number of relays performed.
		Hops int64
		// Retired is the number of tokens that reached a TTL of zero.
		Retired int64
		// Wakeups is the total number of times any worker woke.
		Wakeups int64
		// Stranded is the number of tokens left in inboxes, only non-zero if
		// the run was cancelled.
		Stranded int
		Elapsed  time.Duration
	}

	// Option configures Run.
	Option func(c *runOptions)

	runOptions struct {
		logger *logiface.Logger[logiface.Event]
		rates  map[time.Duration]int
	}

	network struct {
		logger    *logiface.Logger[logiface.Event]
		limiter   *catrate.Limiter
		done      *wakeup.Wakeup
		contexts  []*Context
		cfg       Config
		alive     atomic.Int64
		hops      atomic.Int64
		retired   atomic.Int64
		cancelled atomic.Bool
	}
)

// WithLogger configures the logger for run lifecycle and progress events.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(c *runOptions) {
		c.logger = logger
	}
}

// WithProgressRates limits per-context debug progress logging, see
// catrate.NewLimiter for the format.
func WithProgressRates(rates map[time.Duration]int) Option {
	return func(c *runOptions) {
		c.rates = rates
	}
}

// Run builds a network per cfg, relays every token to retirement, then
// stops, joins and releases every worker.
//
// Cancelling ctx stops the run early, returning a partial Result, and an
// error wrapping the context's error.
func Run(ctx context.Context, cfg Config, opts ...Option) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := runOptions{
		rates: map[time.Duration]int{
			time.Second: 5,
			time.Minute: 60,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Seed == 0 {
		cfg.Seed = rand.Uint64() | 1
	}

	n := &network{
		logger:  o.logger,
		limiter: catrate.NewLimiter(o.rates),
		cfg:     cfg,
	}

	if err := n.init(); err != nil {
		return nil, err
	}

	start := time.Now()
	runErr := n.run(ctx)
	elapsed := time.Since(start)

	res := n.result(elapsed)
	if err := n.close(); err != nil {
		runErr = errors.Join(runErr, err)
	}

	if runErr == nil && !n.cancelled.Load() {
		runErr = n.verify(res)
	}

	n.logger.Info().
		Uint64(`seed`, res.Seed).
		Int(`contexts`, res.Contexts).
		Int64(`hops`, res.Hops).
		Int64(`retired`, res.Retired).
		Int64(`wakeups`, res.Wakeups).
		Dur(`elapsed`, res.Elapsed).
		Err(runErr).
		Log(`relay run finished`)

	return res, runErr
}

// init allocates the contexts and the completion Wakeup, releasing anything
// already allocated on failure.
func (n *network) init() error {
	n.contexts = make([]*Context, 0, n.cfg.Contexts)
	for i := 0; i < n.cfg.Contexts; i++ {
		c, err := newContext(i, n.cfg.Seed, n.cfg.Pipe)
		if err != nil {
			_ = n.close()
			return fmt.Errorf("relay: context %d: %w", i, err)
		}
		n.contexts = append(n.contexts, c)
	}

	done, err := wakeup.New(wakeup.WithPipe(n.cfg.Pipe), wakeup.WithName(`relay-done`))
	if err != nil {
		_ = n.close()
		return fmt.Errorf("relay: completion wakeup: %w", err)
	}
	n.done = done

	return nil
}

func (n *network) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range n.contexts {
		g.Go(func() error {
			return c.run(n)
		})
	}

	// cancellation is a flag plus one final signal, observed by the loop below
	stop := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-gctx.Done():
			n.cancelled.Store(true)
			n.done.Signal()
		case <-stop:
		}
	}()

	n.inject()
	waitErr := n.awaitCompletion()

	close(stop)
	<-watcherDone

	for _, c := range n.contexts {
		c.quitLoop()
	}

	err := g.Wait()
	if err == nil {
		err = waitErr
	}
	if err == nil && n.cancelled.Load() {
		err = fmt.Errorf("relay: cancelled: %w", context.Cause(ctx))
	}
	return err
}

// inject dispatches every token. The live count is raised for all of them
// up front, so the completion signal fires exactly once.
func (n *network) inject() {
	rng := rand.New(rand.NewPCG(n.cfg.Seed, 0))
	n.alive.Add(int64(n.cfg.Tokens))
	for i := 0; i < n.cfg.Tokens; i++ {
		n.dispatch(nil, &Token{ttl: n.cfg.TTL}, rng)
	}
}

func (n *network) awaitCompletion() error {
	poller := wakeup.NewPoller()
	defer poller.Close()

	if err := poller.Register(n.done, func(w *wakeup.Wakeup) {
		w.Acknowledge()
	}); err != nil {
		return err
	}

	for n.alive.Load() != 0 && !n.cancelled.Load() {
		if _, err := poller.Poll(-1); err != nil {
			return fmt.Errorf("relay: await completion: %w", err)
		}
	}

	return nil
}

// dispatch relays the token to a random context, or retires it. The from
// context is nil for the initial injection.
func (n *network) dispatch(from *Context, token *Token, rng *rand.Rand) {
	if token.ttl > 0 {
		next := n.contexts[rng.IntN(len(n.contexts))]
		token.owner = next
		token.ttl--
		n.hops.Add(1)
		next.push(n, token, rng)
		return
	}

	token.owner = nil
	n.retired.Add(1)
	n.logRetired(from)

	if n.alive.Add(-1) == 0 {
		n.done.Signal()
	}
}

func (n *network) logRetired(from *Context) {
	b := n.logger.Debug()
	if !b.Enabled() {
		return
	}
	id := -1
	if from != nil {
		id = from.id
	}
	if _, ok := n.limiter.Allow(id); !ok {
		b.Release()
		return
	}
	b.Int(`context`, id).
		Int64(`alive`, n.alive.Load()).
		Int64(`hops`, n.hops.Load()).
		Log(`token retired`)
}

// pause sleeps for a random duration up to the configured jitter.
func (n *network) pause(rng *rand.Rand) {
	if n.cfg.Jitter <= 0 {
		return
	}
	if d := time.Duration(rng.Int64N(int64(n.cfg.Jitter) + 1)); d > 0 {
		time.Sleep(d)
	}
}

// result must only be called after every worker has been joined.
func (n *network) result(elapsed time.Duration) *Result {
	res := &Result{
		Seed:     n.cfg.Seed,
		Contexts: n.cfg.Contexts,
		Tokens:   n.cfg.Tokens,
		TTL:      n.cfg.TTL,
		Hops:     n.hops.Load(),
		Retired:  n.retired.Load(),
		Elapsed:  elapsed,
	}
	if n.done != nil {
		res.Kind = n.done.Kind()
	}
	for _, c := range n.contexts {
		res.Wakeups += c.wakeups
		res.Stranded += c.pending()
	}
	return res
}

func (n *network) verify(res *Result) error {
	switch {
	case res.Retired != int64(res.Tokens):
		return fmt.Errorf("relay: retired %d of %d tokens", res.Retired, res.Tokens)
	case res.Hops != int64(res.Tokens)*int64(res.TTL):
		return fmt.Errorf("relay: performed %d hops, expected %d", res.Hops, int64(res.Tokens)*int64(res.TTL))
	case res.Stranded != 0:
		return fmt.Errorf("relay: %d tokens stranded in inboxes", res.Stranded)
	}
	return nil
}

// close releases every Wakeup. The completion Wakeup is left pending if a
// duplicate signal arrived after the last acknowledgement, which is legal.
func (n *network) close() error {
	var err error
	for _, c := range n.contexts {
		err = errors.Join(err, c.close())
	}
	if n.done != nil {
		err = errors.Join(err, n.done.Close())
	}
	return err
}
