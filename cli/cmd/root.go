// Package cmd implements flowscript's cobra command tree: the thin
// validate/run/inspect/test/parse wrapper §1 and §6 carve out of the
// core engine. Grounded in the teacher's cmd/compozy.go root-builder
// shape and cli/cmd's per-verb package layout, trimmed of the
// server/auth/TUI machinery that has no FlowScript equivalent (the core
// is a library, not a service).
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowscript/flowscript/cli/helpers"
	"github.com/flowscript/flowscript/internal/config"
	"github.com/flowscript/flowscript/internal/logx"
)

type ctxKey struct{}

// ConfigKey is the context key the loaded *config.Config is stored under.
var ConfigKey = ctxKey{}

var (
	flagConfigFile string
	flagFormat     string
	flagNoColor    bool
)

// NewRootCmd builds the flowscript root command and its full subtree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flowscript",
		Short:         "Compile, validate, and execute FlowScript workflows",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flagConfigFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg.ApplyFlags(flagFormat, cmd.Flags().Changed("format"), flagNoColor, cmd.Flags().Changed("no-color"))
			ctx := context.WithValue(cmd.Context(), ConfigKey, cfg)
			ctx = logx.ContextWithLogger(ctx, logx.NewLogger(logx.Config{}))
			cmd.SetContext(ctx)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flagConfigFile, "config", "", "path to a flowscript config file")
	root.PersistentFlags().StringVar(&flagFormat, "format", "", "output format: text|json")
	root.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored text output")

	root.AddCommand(
		newValidateCmd(),
		newRunCmd(),
		newInspectCmd(),
		newTestCmd(),
		newParseCmd(),
	)
	return root
}

// configFromContext retrieves the *config.Config PersistentPreRunE stored,
// falling back to defaults if invoked directly (e.g. from a test) without
// going through Execute.
func configFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(ConfigKey).(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// ConfigFromContext is configFromContext's exported form, for callers
// outside this package (the CLI entry point deciding how to render a
// top-level Execute error).
func ConfigFromContext(ctx context.Context) *config.Config {
	return configFromContext(ctx)
}

func outputFormat(cfg *config.Config) helpers.Format {
	if cfg.CLI.Format == "json" {
		return helpers.FormatJSON
	}
	return helpers.FormatText
}
