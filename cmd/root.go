// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"time"

	"github.com/Thermoquad/dfctl/pkg/dfplayer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string

	// Resolved once per invocation in PersistentPreRunE
	cfg    *Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "dfctl",
	Short: "DFPlayer Serial MP3 Module Controller",
	Long: `dfctl - A CLI tool for controlling and monitoring DFPlayer serial MP3 modules.

Issues playback actions, runs status queries, and decodes the module's
10-byte frame protocol in human-readable form.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]

Settings may also come from a config file (--config, default
$HOME/.config/dfctl/config.toml) or DFCTL_* environment variables, e.g.
DFCTL_PORT or DFCTL_LOG_LEVEL. Flags take precedence.

For WebSocket authentication, the password is read from the DFCTL_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default $HOME/.config/dfctl/config.toml)")

	// Serial connection flags
	flags.StringP("port", "p", "", "Serial port device")
	flags.IntP("baud", "b", defaultBaud, "Baud rate (serial only)")

	// WebSocket connection flags
	flags.StringP("url", "u", "", "WebSocket URL (ws:// or wss://)")
	flags.String("username", "", "Username for HTTP Basic auth")
	flags.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Protocol flags
	flags.Duration("timeout", dfplayer.DefaultQueryTimeout, "Query reply timeout")
	flags.Duration("send-interval", dfplayer.DefaultSendInterval, "Minimum spacing between transmitted frames")
	flags.Bool("feedback", false, "Request an ACK for every control action")
	flags.Bool("debug", false, "Print every transmitted frame as hex")

	// Logging flags
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console, json)")
	flags.String("log-file", "", "Also write logs to this file (rotated)")
}

// flagKeys maps command-line flags to configuration keys
var flagKeys = map[string]string{
	"port":          "port",
	"baud":          "baud",
	"url":           "url",
	"username":      "username",
	"no-ssl-verify": "no_ssl_verify",
	"timeout":       "timeout",
	"send-interval": "send_interval",
	"feedback":      "feedback",
	"debug":         "debug",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"log-file":      "log.file",
	"metrics-addr":  "metrics.addr",
}

// setup resolves configuration and builds the logger before any command runs
func setup(cmd *cobra.Command, args []string) error {
	v := viper.New()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	c, err := loadConfig(v, cfgFile)
	if err != nil {
		return err
	}

	l, err := newLogger(c.Log, true)
	if err != nil {
		return err
	}

	cfg = c
	logger = l
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("config loaded", zap.String("file", used))
	}
	return nil
}

// queryTimeout returns the per-query timeout, falling back to the default
// when a command runs without setup
func queryTimeout() time.Duration {
	if cfg == nil || cfg.Timeout <= 0 {
		return dfplayer.DefaultQueryTimeout
	}
	return cfg.Timeout
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
