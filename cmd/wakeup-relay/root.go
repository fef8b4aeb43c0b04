package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joeycumines/go-wakeup"
	"github.com/joeycumines/go-wakeup/internal/relay"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/spf13/cobra"
)

var logLevels = map[string]logiface.Level{
	"disabled": logiface.LevelDisabled,
	"error":    logiface.LevelError,
	"warning":  logiface.LevelWarning,
	"notice":   logiface.LevelNotice,
	"info":     logiface.LevelInformational,
	"debug":    logiface.LevelDebug,
	"trace":    logiface.LevelTrace,
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		iterations int
		logLevel   string
		flagCfg    = relay.DefaultConfig()
	)

	cmd := &cobra.Command{
		Use:          "wakeup-relay",
		Short:        "Stress test cross-thread wakeups with a token relay network",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, configPath, flagCfg)
			if err != nil {
				return err
			}
			if iterations < 1 {
				return fmt.Errorf("iterations must be at least 1, got %d", iterations)
			}

			level, ok := logLevels[strings.ToLower(logLevel)]
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}
			logger := stumpy.L.New(
				stumpy.L.WithStumpy(stumpy.WithWriter(cmd.ErrOrStderr())),
				stumpy.L.WithLevel(level),
			).Logger()
			wakeup.SetLogger(logger)
			defer wakeup.SetLogger(nil)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			for i := 1; i <= iterations; i++ {
				res, err := relay.Run(ctx, cfg, relay.WithLogger(logger))
				printResult(cmd.OutOrStdout(), i, iterations, res, err)
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "TOML config file, explicit flags take precedence")
	flags.IntVar(&flagCfg.Contexts, "contexts", flagCfg.Contexts, "number of worker contexts")
	flags.IntVar(&flagCfg.Tokens, "tokens", flagCfg.Tokens, "number of tokens to relay")
	flags.IntVar(&flagCfg.TTL, "ttl", flagCfg.TTL, "hops per token before it is retired")
	flags.Uint64Var(&flagCfg.Seed, "seed", flagCfg.Seed, "relay target seed, 0 for random")
	flags.DurationVar(&flagCfg.Jitter, "jitter", flagCfg.Jitter, "maximum random delay injected around signals")
	flags.BoolVar(&flagCfg.Pipe, "pipe", flagCfg.Pipe, "use the self-pipe readiness channel instead of eventfd")
	flags.IntVar(&iterations, "iterations", 1, "number of runs")
	flags.StringVar(&logLevel, "log-level", "warning", "log level (disabled|error|warning|notice|info|debug|trace)")

	return cmd
}

// resolveConfig layers explicitly set flags over the config file (or the
// defaults, if there is none).
func resolveConfig(cmd *cobra.Command, path string, flagCfg relay.Config) (relay.Config, error) {
	cfg := relay.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = relay.LoadConfig(path); err != nil {
			return relay.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("contexts") {
		cfg.Contexts = flagCfg.Contexts
	}
	if flags.Changed("tokens") {
		cfg.Tokens = flagCfg.Tokens
	}
	if flags.Changed("ttl") {
		cfg.TTL = flagCfg.TTL
	}
	if flags.Changed("seed") {
		cfg.Seed = flagCfg.Seed
	}
	if flags.Changed("jitter") {
		cfg.Jitter = flagCfg.Jitter
	}
	if flags.Changed("pipe") {
		cfg.Pipe = flagCfg.Pipe
	}

	return cfg, cfg.Validate()
}

func printResult(w io.Writer, i, n int, res *relay.Result, err error) {
	status := color.New(color.FgGreen, color.Bold).Sprint("ok")
	if err != nil {
		status = color.New(color.FgRed, color.Bold).Sprint("FAIL")
	}
	_, _ = fmt.Fprintf(w, "run %d/%d: %s", i, n, status)
	if res != nil {
		_, _ = fmt.Fprintf(w,
			" kind=%s contexts=%d tokens=%d ttl=%d hops=%d retired=%d wakeups=%d stranded=%d seed=%d elapsed=%s",
			res.Kind, res.Contexts, res.Tokens, res.TTL, res.Hops, res.Retired, res.Wakeups, res.Stranded, res.Seed, res.Elapsed,
		)
	}
	if err != nil {
		_, _ = fmt.Fprintf(w, " error=%q", err.Error())
	}
	_, _ = fmt.Fprintln(w)
}
