//go:build darwin

package wakeup

// createWakeFd creates a self-pipe for wake-up notifications (Darwin).
// Returns the read end and the write end of the pipe.
// Note: the pipe parameter is ignored, Darwin has no eventfd.
func createWakeFd(pipe bool) (int, int, ChannelKind, error) {
	_ = pipe
	r, w, err := createWakePipe()
	return r, w, KindPipe, err
}
