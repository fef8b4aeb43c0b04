// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package wakeup

import (
	"github.com/joeycumines/logiface"
)

// wakeupOptions holds configuration options for Wakeup creation.
type wakeupOptions struct {
	logger *logiface.Logger[logiface.Event]
	name   string
	pipe   bool
}

// --- Wakeup Options ---

// Option configures a Wakeup instance.
type Option interface {
	applyWakeup(*wakeupOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyWakeupFunc func(*wakeupOptions) error
}

func (o *optionImpl) applyWakeup(opts *wakeupOptions) error {
	return o.applyWakeupFunc(opts)
}

// WithPipe forces the self-pipe readiness channel, even where eventfd is
// available. On Darwin the pipe is always used.
func WithPipe(enabled bool) Option {
	return &optionImpl{func(opts *wakeupOptions) error {
		opts.pipe = enabled
		return nil
	}}
}

// WithLogger sets the logger used for lifecycle events (creation, close,
// fatal errors). Signal never logs. A nil logger disables logging, and the
// default is the package logger, see [SetLogger].
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *wakeupOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithName attaches a name to the Wakeup, included in log events.
func WithName(name string) Option {
	return &optionImpl{func(opts *wakeupOptions) error {
		opts.name = name
		return nil
	}}
}

// resolveOptions applies Option instances to wakeupOptions.
func resolveOptions(opts []Option) (*wakeupOptions, error) {
	cfg := &wakeupOptions{
		logger: getLogger(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyWakeup(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
