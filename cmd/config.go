// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Thermoquad/dfctl/pkg/dfplayer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// DFPlayer modules ship fixed at 9600 8N1
const defaultBaud = 9600

// Config is the resolved dfctl configuration
type Config struct {
	Port        string `mapstructure:"port" toml:"port"`
	Baud        int    `mapstructure:"baud" toml:"baud"`
	URL         string `mapstructure:"url" toml:"url"`
	Username    string `mapstructure:"username" toml:"username"`
	NoSSLVerify bool   `mapstructure:"no_ssl_verify" toml:"no_ssl_verify"`

	Timeout      time.Duration `mapstructure:"timeout" toml:"timeout"`
	SendInterval time.Duration `mapstructure:"send_interval" toml:"send_interval"`
	Feedback     bool          `mapstructure:"feedback" toml:"feedback"`
	Debug        bool          `mapstructure:"debug" toml:"debug"`

	Log     LogConfig     `mapstructure:"log" toml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" toml:"metrics"`
}

// LogConfig configures the diagnostic logger
type LogConfig struct {
	Level      string `mapstructure:"level" toml:"level"`
	Format     string `mapstructure:"format" toml:"format"`
	File       string `mapstructure:"file" toml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" toml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" toml:"compress"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Addr string `mapstructure:"addr" toml:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "")
	v.SetDefault("baud", defaultBaud)
	v.SetDefault("url", "")
	v.SetDefault("username", "")
	v.SetDefault("no_ssl_verify", false)
	v.SetDefault("timeout", dfplayer.DefaultQueryTimeout)
	v.SetDefault("send_interval", dfplayer.DefaultSendInterval)
	v.SetDefault("feedback", false)
	v.SetDefault("debug", false)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
	v.SetDefault("metrics.addr", "")
}

// defaultConfigDir returns $HOME/.config/dfctl, or "" if there is no home
func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "dfctl")
}

// loadConfig resolves configuration from defaults, the config file,
// DFCTL_* environment variables, and any flags bound to v.
// A missing default config file is not an error; a missing explicit one is.
func loadConfig(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("DFCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		if dir := defaultConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values that flags and files cannot constrain on their own
func (c *Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate: %d", c.Baud)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid query timeout: %v", c.Timeout)
	}
	if c.SendInterval < 0 {
		return fmt.Errorf("invalid send interval: %v", c.SendInterval)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %q (use console or json)", c.Log.Format)
	}
	return nil
}

// clientOptions translates the configuration into dfplayer options
func (c *Config) clientOptions() []dfplayer.Option {
	opts := []dfplayer.Option{
		dfplayer.WithLogger(logger.Named("dfplayer")),
		dfplayer.WithTimeout(c.Timeout),
		dfplayer.WithSendInterval(c.SendInterval),
		dfplayer.WithFeedback(c.Feedback),
	}
	if c.Debug {
		opts = append(opts, dfplayer.WithSendHook(func(raw []byte) {
			fmt.Fprintf(os.Stderr, "TX %s\n", dfplayer.FormatHex(raw, ":"))
		}))
	}
	return opts
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect dfctl configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
