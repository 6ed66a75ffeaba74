package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/flowscript/flowscript/cli/helpers"
	"github.com/flowscript/flowscript/engine/parser"
	"github.com/flowscript/flowscript/engine/validator"
)

func newParseCmd() *cobra.Command {
	var format string
	var noValidate bool
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a workflow file and print its AST",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := afero.ReadFile(afero.NewOsFs(), args[0])
			if err != nil {
				return helpers.NewCliError("ReadError", "failed to read workflow file", err.Error())
			}
			wf, parseErrs := parser.Parse(string(source), args[0])
			if len(parseErrs) > 0 {
				return parseErrs[0]
			}
			if !noValidate {
				result := validator.Validate(wf, validator.Options{})
				if !result.Valid {
					return result.Errors[0]
				}
			}
			dump := helpers.DumpWorkflow(wf)
			switch format {
			case "yaml":
				raw, err := yaml.Marshal(dump)
				if err != nil {
					return fmt.Errorf("marshal yaml: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(raw)
				return err
			default:
				raw, err := json.MarshalIndent(dump, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal json: %w", err)
				}
				raw = append(raw, '\n')
				_, err = cmd.OutOrStdout().Write(raw)
				return err
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json|yaml")
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "skip validation before printing the AST")
	return cmd
}
