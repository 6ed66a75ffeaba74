package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/flowscript/flowscript/cli/helpers"
	"github.com/flowscript/flowscript/engine/parser"
	"github.com/flowscript/flowscript/engine/validator"
)

func newValidateCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate <files...>",
		Short: "Parse and validate one or more workflow files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			styles := helpers.NewStyles(cfg.CLI.NoColor)
			format := outputFormat(cfg)

			results := make([]fileValidation, 0, len(args))
			allValid := true
			for _, path := range args {
				fv := validateFile(path, strict)
				results = append(results, fv)
				if !fv.Valid {
					allValid = false
				}
			}

			if format == helpers.FormatJSON {
				data := make([]any, 0, len(results))
				for _, r := range results {
					data = append(data, r.toJSON())
				}
				if err := helpers.WriteJSON(cmd.OutOrStdout(), data); err != nil {
					return err
				}
			} else {
				renderValidationText(cmd.OutOrStdout(), styles, results)
			}

			if !allValid {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&strict, "strict", "s", false, "promote warnings to errors")
	return cmd
}

type fileValidation struct {
	Path     string
	Valid    bool
	Errors   []string
	Warnings []string
}

func (fv fileValidation) toJSON() map[string]any {
	return map[string]any{
		"file": fv.Path, "valid": fv.Valid,
		"errors": fv.Errors, "warnings": fv.Warnings,
	}
}

func validateFile(path string, strict bool) fileValidation {
	fv := fileValidation{Path: path}
	source, err := afero.ReadFile(afero.NewOsFs(), path)
	if err != nil {
		fv.Errors = append(fv.Errors, fmt.Sprintf("read file: %s", err))
		return fv
	}
	wf, parseErrs := parser.Parse(string(source), path)
	for _, e := range parseErrs {
		fv.Errors = append(fv.Errors, e.Error())
	}
	if wf == nil {
		return fv
	}
	result := validator.Validate(wf, validator.Options{Strict: strict})
	for _, e := range result.Errors {
		fv.Errors = append(fv.Errors, e.Error())
	}
	for _, w := range result.Warnings {
		fv.Warnings = append(fv.Warnings, w.Error())
	}
	fv.Valid = len(fv.Errors) == 0
	return fv
}

func renderValidationText(w interface{ Write([]byte) (int, error) }, styles helpers.Styles, results []fileValidation) {
	for _, r := range results {
		status := styles.Success.Render("valid")
		if !r.Valid {
			status = styles.Error.Render("invalid")
		}
		fmt.Fprintf(w, "%s: %s\n", styles.Title.Render(r.Path), status)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s %s\n", styles.Error.Render("error:"), e)
		}
		for _, wn := range r.Warnings {
			fmt.Fprintf(w, "  %s %s\n", styles.Warn.Render("warning:"), wn)
		}
	}
}
