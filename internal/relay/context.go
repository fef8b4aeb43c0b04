package relay

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-wakeup"
)

// Token is a unit of relayed work.
type Token struct {
	// owner is the context whose inbox holds the token, for assertions only
	owner *Context
	ttl   int
}

// Context is a worker, owning one Wakeup, and an inbox other workers push
// tokens into. Its loop runs on a dedicated OS thread.
type Context struct {
	wakeup  *wakeup.Wakeup
	rng     *rand.Rand // owner only
	inbox   []*Token   // guarded by mu
	id      int
	wakeups int64 // owner only
	mu      sync.Mutex
	quit    atomic.Bool
}

func newContext(id int, seed uint64, pipe bool) (*Context, error) {
	w, err := wakeup.New(
		wakeup.WithPipe(pipe),
		wakeup.WithName(fmt.Sprintf("relay-%d", id)),
	)
	if err != nil {
		return nil, err
	}
	return &Context{
		id:     id,
		wakeup: w,
		rng:    rand.New(rand.NewPCG(seed, uint64(id)+1)),
	}, nil
}

// ID returns the index of the context within its network.
func (c *Context) ID() int {
	return c.id
}

// push inserts the token and signals. The signal must follow the insert, or
// the owner could acknowledge, find nothing, and sleep through the token.
func (c *Context) push(n *network, token *Token, rng *rand.Rand) {
	if token.owner != c {
		panic(fmt.Errorf("relay: token pushed to context %d, owned by another", c.id))
	}

	c.mu.Lock()
	c.inbox = append(c.inbox, token)
	c.mu.Unlock()

	n.pause(rng)

	c.wakeup.Signal()
}

func (c *Context) tryPop() *Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	last := len(c.inbox) - 1
	if last < 0 {
		return nil
	}
	token := c.inbox[last]
	c.inbox[last] = nil
	c.inbox = c.inbox[:last]
	return token
}

func (c *Context) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inbox)
}

// quitLoop sets the quit flag, then signals, so a sleeping loop observes it.
func (c *Context) quitLoop() {
	c.quit.Store(true)
	c.wakeup.Signal()
}

// run is the worker loop: wait, acknowledge, then drain, until told to quit.
func (c *Context) run(n *network) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for !c.quit.Load() {
		n.pause(c.rng)

		if _, err := c.wakeup.Wait(-1); err != nil {
			return fmt.Errorf("relay: context %d: %w", c.id, err)
		}
		c.wakeup.Acknowledge()
		c.wakeups++

		for token := c.tryPop(); token != nil; token = c.tryPop() {
			if token.owner != c {
				return fmt.Errorf("relay: context %d: popped token owned by another context", c.id)
			}
			n.dispatch(c, token, c.rng)
		}
	}

	return nil
}

func (c *Context) close() error {
	return c.wakeup.Close()
}
