// Command wakeup-relay stress tests the wakeup package, relaying tokens
// between worker threads until every token is retired.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
