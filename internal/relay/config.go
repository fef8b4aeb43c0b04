package relay

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config parameterises a relay run.
//
// Example TOML:
//
//	contexts = 5
//	tokens = 5
//	ttl = 100
//	seed = 42
//	jitter = "20us"
//	pipe = false
type Config struct {
	// Contexts is the number of worker contexts, each with its own Wakeup
	// and OS thread.
	Contexts int `toml:"contexts"`
	// Tokens is the number of tokens injected at the start of the run.
	Tokens int `toml:"tokens"`
	// TTL is the number of hops each token makes before it is retired.
	TTL int `toml:"ttl"`
	// Seed seeds the relay target selection, 0 picks a random seed.
	Seed uint64 `toml:"seed"`
	// Jitter is the upper bound of a random delay injected between pushing a
	// token and signaling, and before each worker sleeps, to widen the
	// windows in which a wakeup could be lost.
	Jitter time.Duration `toml:"jitter"`
	// Pipe forces the self-pipe readiness channel.
	Pipe bool `toml:"pipe"`
}

// DefaultConfig returns the baseline stress scenario, 5 contexts relaying 5
// tokens, 100 hops each.
func DefaultConfig() Config {
	return Config{
		Contexts: 5,
		Tokens:   5,
		TTL:      100,
	}
}

// Validate reports the first invalid field, if any.
func (c Config) Validate() error {
	switch {
	case c.Contexts < 1:
		return fmt.Errorf("relay: invalid config: contexts must be at least 1, got %d", c.Contexts)
	case c.Tokens < 1:
		return fmt.Errorf("relay: invalid config: tokens must be at least 1, got %d", c.Tokens)
	case c.TTL < 0:
		return fmt.Errorf("relay: invalid config: ttl must not be negative, got %d", c.TTL)
	case c.Jitter < 0:
		return fmt.Errorf("relay: invalid config: jitter must not be negative, got %s", c.Jitter)
	}
	return nil
}

// LoadConfig reads a TOML file over DefaultConfig. Unknown keys are
// rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
