//go:build linux || darwin

package wakeup_test

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/go-wakeup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type channelMode struct {
	name string
	opts []wakeup.Option
}

// channelModes runs every test against both the default channel, and the
// self-pipe fallback.
var channelModes = []channelMode{
	{name: "default"},
	{name: "pipe", opts: []wakeup.Option{wakeup.WithPipe(true)}},
}

func newWakeup(t *testing.T, opts ...wakeup.Option) *wakeup.Wakeup {
	t.Helper()
	w, err := wakeup.New(opts...)
	require.NoError(t, err)
	return w
}

func recoverError(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
			if err == nil {
				panic(r)
			}
		}
	}()
	fn()
	return nil
}

func TestWakeup_Semantics(t *testing.T) {
	for _, mode := range channelModes {
		t.Run(mode.name, func(t *testing.T) {
			w := newWakeup(t, mode.opts...)
			defer w.Close()

			assert.False(t, w.IsSignaled(), "fresh wakeup must not be signaled")
			assert.False(t, w.Pending())

			w.Signal()
			assert.True(t, w.IsSignaled())
			assert.True(t, w.Pending())

			w.Acknowledge()
			assert.False(t, w.IsSignaled())
			assert.False(t, w.Pending())

			// reusable after acknowledgement
			w.Signal()
			assert.True(t, w.IsSignaled())
			w.Acknowledge()
			assert.False(t, w.IsSignaled())
		})
	}
}

func TestWakeup_AcknowledgeWithoutSignal(t *testing.T) {
	for _, mode := range channelModes {
		t.Run(mode.name, func(t *testing.T) {
			w := newWakeup(t, mode.opts...)
			defer w.Close()

			w.Acknowledge()
			w.Acknowledge()
			assert.False(t, w.IsSignaled())
		})
	}
}

func TestWakeup_CloseUnused(t *testing.T) {
	for _, mode := range channelModes {
		t.Run(mode.name, func(t *testing.T) {
			w := newWakeup(t, mode.opts...)
			require.NoError(t, w.Close())
		})
	}
}

func TestWakeup_CloseWhileSignaled(t *testing.T) {
	for _, mode := range channelModes {
		t.Run(mode.name, func(t *testing.T) {
			w := newWakeup(t, mode.opts...)
			w.Signal()
			require.NoError(t, w.Close())
		})
	}
}

// TestWakeup_ExcessiveSignaling verifies that signaling a million times
// neither blocks nor deadlocks, and that one acknowledgement clears it all.
func TestWakeup_ExcessiveSignaling(t *testing.T) {
	for _, mode := range channelModes {
		t.Run(mode.name, func(t *testing.T) {
			w := newWakeup(t, mode.opts...)
			defer w.Close()

			for i := 0; i < 1000000; i++ {
				w.Signal()
			}
			require.True(t, w.IsSignaled())

			w.Acknowledge()
			require.False(t, w.IsSignaled())
		})
	}
}

func TestWakeup_DoubleClose(t *testing.T) {
	w := newWakeup(t)
	require.NoError(t, w.Close())

	err := w.Close()
	require.Error(t, err)
	assert.True(t, errors.Is(err, wakeup.ErrInvalidUse))

	var usageErr *wakeup.UsageError
	require.True(t, errors.As(err, &usageErr))
	assert.Equal(t, "close", usageErr.Op)
}

func TestWakeup_UseAfterClose(t *testing.T) {
	w := newWakeup(t)
	require.NoError(t, w.Close())

	err := recoverError(w.Signal)
	require.Error(t, err, "signal after close must panic")
	assert.ErrorIs(t, err, wakeup.ErrInvalidUse)

	err = recoverError(w.Acknowledge)
	require.Error(t, err, "acknowledge after close must panic")
	assert.ErrorIs(t, err, wakeup.ErrInvalidUse)

	_, err = w.Wait(0)
	assert.ErrorIs(t, err, wakeup.ErrInvalidUse)
}

func TestWakeup_Signaler(t *testing.T) {
	w := newWakeup(t)
	defer w.Close()

	s := w.Signaler()
	_, ok := s.(*wakeup.Wakeup)
	require.False(t, ok, "signaler must not expose the owner API")

	s.Signal()
	assert.True(t, w.IsSignaled())
}

func TestWakeup_FdStable(t *testing.T) {
	w := newWakeup(t)
	defer w.Close()

	fd := w.Fd()
	require.GreaterOrEqual(t, fd, 0)
	w.Signal()
	w.Acknowledge()
	assert.Equal(t, fd, w.Fd())
	assert.Equal(t, wakeup.PollFD{Fd: fd, Events: wakeup.EventRead}, w.PollFD())
}

func TestWakeup_WaitTimeout(t *testing.T) {
	w := newWakeup(t)
	defer w.Close()

	start := time.Now()
	ok, err := w.Wait(20 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestWakeup_WaitReleasedBySignal(t *testing.T) {
	for _, mode := range channelModes {
		t.Run(mode.name, func(t *testing.T) {
			w := newWakeup(t, mode.opts...)
			defer w.Close()

			go func() {
				time.Sleep(10 * time.Millisecond)
				w.Signal()
			}()

			ok, err := w.Wait(-1)
			require.NoError(t, err)
			require.True(t, ok)
			w.Acknowledge()
		})
	}
}

// TestWakeup_NoLostWakeup runs a producer that bumps a counter then signals,
// against a consumer that waits, acknowledges, then reads the counter. The
// consumer must always observe the final count, or it would sleep forever.
func TestWakeup_NoLostWakeup(t *testing.T) {
	for _, mode := range channelModes {
		t.Run(mode.name, func(t *testing.T) {
			w := newWakeup(t, mode.opts...)
			defer w.Close()

			const total = 20000
			var counter atomic.Int64

			producerDone := make(chan struct{})
			defer func() { <-producerDone }()

			go func() {
				defer close(producerDone)
				for i := 0; i < total; i++ {
					counter.Add(1)
					w.Signal()
					if i%64 == 0 {
						runtime.Gosched()
					}
				}
			}()

			for {
				ok, err := w.Wait(5 * time.Second)
				require.NoError(t, err)
				require.True(t, ok, "LOST WAKEUP: consumer observed %d/%d", counter.Load(), total)
				w.Acknowledge()
				if counter.Load() == total {
					return
				}
			}
		})
	}
}

func TestWakeup_ConcurrentSignalers(t *testing.T) {
	for _, mode := range channelModes {
		t.Run(mode.name, func(t *testing.T) {
			w := newWakeup(t, mode.opts...)
			defer w.Close()

			const (
				producers = 16
				signals   = 5000
			)

			var wg sync.WaitGroup
			wg.Add(producers)
			for p := 0; p < producers; p++ {
				go func() {
					defer wg.Done()
					for i := 0; i < signals; i++ {
						w.Signal()
					}
				}()
			}

			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()

		loop:
			for {
				select {
				case <-done:
					break loop
				default:
				}
				if _, err := w.Wait(time.Millisecond); err != nil {
					t.Fatal(err)
				}
				w.Acknowledge()
			}

			// quiescent: pending must imply readable
			if w.Pending() {
				require.True(t, w.IsSignaled())
			}

			w.Signal()
			require.True(t, w.IsSignaled())
			w.Acknowledge()
			require.False(t, w.IsSignaled())
		})
	}
}

func TestChannelKind_String(t *testing.T) {
	assert.Equal(t, "eventfd", wakeup.KindEventFD.String())
	assert.Equal(t, "pipe", wakeup.KindPipe.String())
	assert.Equal(t, "unknown(0)", wakeup.ChannelKind(0).String())
}

func TestWakeup_PipeKind(t *testing.T) {
	w := newWakeup(t, wakeup.WithPipe(true))
	defer w.Close()
	assert.Equal(t, wakeup.KindPipe, w.Kind())
}

func TestNew_NilOption(t *testing.T) {
	w, err := wakeup.New(nil, wakeup.WithName("x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}
