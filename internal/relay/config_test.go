package relay

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	for name, cfg := range map[string]Config{
		"contexts": {Contexts: 0, Tokens: 1},
		"tokens":   {Contexts: 1, Tokens: 0},
		"ttl":      {Contexts: 1, Tokens: 1, TTL: -1},
		"jitter":   {Contexts: 1, Tokens: 1, Jitter: -time.Second},
	} {
		t.Run(name, func(t *testing.T) {
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
contexts = 8
ttl = 250
seed = 42
jitter = "20us"
pipe = true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Contexts: 8,
		Tokens:   DefaultConfig().Tokens,
		TTL:      250,
		Seed:     42,
		Jitter:   20 * time.Microsecond,
		Pipe:     true,
	}, cfg)
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "contexts = 2\nthreads = 4\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threads")
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "contexts = 0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contexts")

	_, err = LoadConfig(writeConfig(t, "contexts = [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse TOML")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
