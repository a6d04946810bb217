// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dfplayer

import (
	"time"

	"go.uber.org/zap"
)

// Config holds the dispatcher and client configuration.
type Config struct {
	// Logger receives debug-level protocol diagnostics (default: no-op)
	Logger *zap.Logger

	// QueryTimeout bounds how long Ask waits for a reply
	QueryTimeout time.Duration

	// SendInterval is the minimum spacing between transmitted frames.
	// Zero disables pacing.
	SendInterval time.Duration

	// Feedback sets the feedback flag on control actions
	Feedback bool

	// EventHandler receives frames that do not resolve a query (optional)
	EventHandler EventHandler

	// Catalog resolves action and query names (default: DefaultCatalog)
	Catalog *Catalog

	// SendHook is called with the wire bytes of every transmitted frame
	// before the write (optional)
	SendHook func(raw []byte)
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Logger:       zap.NewNop(),
		QueryTimeout: DefaultQueryTimeout,
		SendInterval: DefaultSendInterval,
	}
}

func buildConfig(opts []Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog()
	}
	return cfg
}

// Option is a functional option for configuring a Dispatcher or Client.
type Option func(*Config)

// WithLogger sets the logger for protocol diagnostics.
//
// Example:
//
//	client := dfplayer.NewClient(port, dfplayer.WithLogger(logger.Named("dfplayer")))
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTimeout sets the query reply timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.QueryTimeout = timeout
	}
}

// WithSendInterval sets the minimum spacing between transmitted frames.
func WithSendInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.SendInterval = interval
	}
}

// WithFeedback requests an ACK (0x41) for every control action.
func WithFeedback(enabled bool) Option {
	return func(c *Config) {
		c.Feedback = enabled
	}
}

// WithEventHandler sets the receiver for unsolicited frames.
//
// Example:
//
//	client := dfplayer.NewClient(port,
//	    dfplayer.WithEventHandler(dfplayer.EventHandlerFunc(func(e dfplayer.Event) {
//	        fmt.Println(e)
//	    })),
//	)
func WithEventHandler(handler EventHandler) Option {
	return func(c *Config) {
		c.EventHandler = handler
	}
}

// WithCatalog replaces the default command catalog.
func WithCatalog(catalog *Catalog) Option {
	return func(c *Config) {
		c.Catalog = catalog
	}
}

// WithSendHook sets a function called with every transmitted frame's bytes.
func WithSendHook(hook func(raw []byte)) Option {
	return func(c *Config) {
		c.SendHook = hook
	}
}
