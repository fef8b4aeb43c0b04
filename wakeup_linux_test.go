//go:build linux

package wakeup_test

import (
	"errors"
	"testing"

	"github.com/joeycumines/go-wakeup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestWakeup_DefaultKindLinux(t *testing.T) {
	w, err := wakeup.New()
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, wakeup.KindEventFD, w.Kind())
}

// TestNew_DescriptorLimit lowers RLIMIT_NOFILE, then allocates until New
// fails, which must report exhaustion, and preserve the errno.
func TestNew_DescriptorLimit(t *testing.T) {
	for _, mode := range channelModes {
		t.Run(mode.name, func(t *testing.T) {
			var orig unix.Rlimit
			require.NoError(t, unix.Getrlimit(unix.RLIMIT_NOFILE, &orig))

			lim := orig
			if lim.Cur > 64 {
				lim.Cur = 64
			}
			require.NoError(t, unix.Setrlimit(unix.RLIMIT_NOFILE, &lim))

			var ws []*wakeup.Wakeup
			defer func() {
				for _, w := range ws {
					assert.NoError(t, w.Close())
				}
			}()
			defer func() {
				require.NoError(t, unix.Setrlimit(unix.RLIMIT_NOFILE, &orig))
			}()

			var err error
			for i := 0; i < 1000; i++ {
				var w *wakeup.Wakeup
				if w, err = wakeup.New(mode.opts...); err != nil {
					break
				}
				ws = append(ws, w)
			}

			require.Error(t, err, "expected New to fail after %d allocations", len(ws))
			assert.ErrorIs(t, err, wakeup.ErrResourceExhausted)
			assert.ErrorIs(t, err, unix.EMFILE)
			assert.NotErrorIs(t, err, wakeup.ErrInvalidUse)

			var re *wakeup.ResourceError
			if assert.True(t, errors.As(err, &re)) {
				assert.Equal(t, "new", re.Op)
			}
		})
	}
}
