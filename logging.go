// logging.go - package-level logger configuration.
//
// Wakeup instances capture the package logger at construction time, unless
// WithLogger is given. Only lifecycle events are logged: Signal is callable
// from hot paths and must stay allocation free.

package wakeup

import (
	"sync"

	"github.com/joeycumines/logiface"
)

var (
	globalLogger struct {
		sync.RWMutex
		logger *logiface.Logger[logiface.Event]
	}
)

// SetLogger sets the package default logger, used by Wakeup and Poller
// instances created afterwards. A nil logger (the default) disables logging.
//
// Any logiface backend may be used, e.g. stumpy:
//
//	wakeup.SetLogger(stumpy.L.New(stumpy.L.WithStumpy()).Logger())
func SetLogger(logger *logiface.Logger[logiface.Event]) {
	globalLogger.Lock()
	defer globalLogger.Unlock()
	globalLogger.logger = logger
}

func getLogger() *logiface.Logger[logiface.Event] {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	return globalLogger.logger
}

func (w *Wakeup) logCreated() {
	w.logger.Debug().
		Str(`wakeup`, w.name).
		Str(`kind`, w.kind.String()).
		Int(`fd`, w.readFd).
		Log(`wakeup created`)
}

func (w *Wakeup) logClosed(pending bool, err error) {
	if err != nil {
		w.logger.Err().
			Str(`wakeup`, w.name).
			Err(err).
			Log(`wakeup close failed`)
		return
	}
	w.logger.Debug().
		Str(`wakeup`, w.name).
		Bool(`pending`, pending).
		Log(`wakeup closed`)
}

func (w *Wakeup) logFatal(op string, err error) {
	w.logger.Crit().
		Str(`wakeup`, w.name).
		Str(`op`, op).
		Err(err).
		Log(`wakeup readiness channel failed`)
}
