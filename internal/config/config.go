// Package config loads FlowScript's ambient CLI settings: output
// formatting, color, and the default state directory for persistence.
// Grounded in the teacher's pkg/config layering (spf13/viper bound
// against defaults, a config file, and environment variables, decoded
// through go-viper/mapstructure/v2), trimmed to the handful of settings
// the thin CLI wrapper actually needs — FlowScript has no server, auth,
// or distributed-runtime configuration to carry.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// CLI holds the settings the command tree reads before dispatch.
type CLI struct {
	Format   string `mapstructure:"format"`    // "text" or "json"
	NoColor  bool   `mapstructure:"no_color"`
	StateDir string `mapstructure:"state_dir"` // persistence root for `run`/resume
}

// Config is the root of FlowScript's CLI configuration.
type Config struct {
	CLI CLI `mapstructure:"cli"`
}

// Default returns the configuration the CLI falls back to with no config
// file and no environment overrides.
func Default() *Config {
	return &Config{CLI: CLI{Format: "text", NoColor: false, StateDir: ".flowscript/state"}}
}

// Load builds a Config from (in ascending precedence) built-in defaults,
// an optional config file at path (ignored if empty or absent), and
// FLOWSCRIPT_-prefixed environment variables, e.g. FLOWSCRIPT_CLI_FORMAT.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("flowscript")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("cli.format", def.CLI.Format)
	v.SetDefault("cli.no_color", def.CLI.NoColor)
	v.SetDefault("cli.state_dir", def.CLI.StateDir)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(mapstructure.StringToTimeDurationHookFunc())
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyFlags overlays CLI flag values onto cfg when the caller explicitly
// set them, giving flags the highest precedence over file/env defaults.
func (c *Config) ApplyFlags(format string, formatSet bool, noColor bool, noColorSet bool) {
	if formatSet && format != "" {
		c.CLI.Format = format
	}
	if noColorSet {
		c.CLI.NoColor = noColor
	}
}
