//go:build !linux && !darwin

package wakeup

import (
	"errors"
	"fmt"
	"time"
)

func createWakeFd(bool) (int, int, ChannelKind, error) {
	return -1, -1, 0, errors.ErrUnsupported
}

func closeFD(int) error { return errors.ErrUnsupported }

func readFD(int, []byte) (int, error) { return 0, errors.ErrUnsupported }

func writeFD(int, []byte) (int, error) { return 0, errors.ErrUnsupported }

func isWouldBlock(error) bool { return false }

func isInterrupted(error) bool { return false }

func pollFDs([]PollFD, time.Duration) (int, error) { return 0, fmt.Errorf("wakeup: poll: %w", errors.ErrUnsupported) }
