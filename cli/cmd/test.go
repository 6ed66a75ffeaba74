package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flowscript/flowscript/cli/helpers"
	"github.com/flowscript/flowscript/engine/executor"
	"github.com/flowscript/flowscript/engine/parser"
	"github.com/flowscript/flowscript/engine/runtime"
	"github.com/flowscript/flowscript/engine/state"
	"github.com/flowscript/flowscript/engine/validator"
)

// newTestCmd implements the `test` verb of §6's CLI surface. FlowScript's
// NodeAST (§3) has no declared-test-case construct of its own, so "the
// declared test cases" this command executes are the workflow's own
// metadata.config defaults: it runs the workflow exactly as `run` would
// with no overrides, reporting per-node pass/fail — a smoke test against
// the workflow's own schema-declared defaults rather than a separate
// fixture format (see DESIGN.md's Open Question decisions).
func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <file>",
		Short: "Execute a workflow against its declared config defaults and report pass/fail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			styles := helpers.NewStyles(cfg.CLI.NoColor)
			format := outputFormat(cfg)
			path := args[0]

			source, err := os.ReadFile(path)
			if err != nil {
				return helpers.NewCliError("ReadError", "failed to read workflow file", err.Error())
			}
			wf, parseErrs := parser.Parse(string(source), path)
			if len(parseErrs) > 0 {
				return parseErrs[0]
			}
			valResult := validator.Validate(wf, validator.Options{})
			if !valResult.Valid {
				return valResult.Errors[0]
			}

			mergedConfig, err := buildConfig(wf.Metadata, nil)
			if err != nil {
				return err
			}
			secrets := secretsFromEnv(wf.Metadata.Secrets)
			workflowDir := filepath.Dir(path)

			reg := runtime.NewRegistry()
			runtime.RegisterBuiltins(reg)
			ex := executor.New(reg, workflowDir)
			ex.Loader = &fileLoader{baseDir: workflowDir}

			st := state.New(wf.Metadata.Name, state.Options{Config: mergedConfig, Secrets: secrets})
			runErr := ex.Run(cmd.Context(), wf, st)

			passed := runErr == nil
			results := st.NodeResults()
			cases := make([]any, 0, len(results))
			for _, r := range results {
				cases = append(cases, map[string]any{
					"id": r.NodeID, "passed": r.Status == state.StatusSuccess, "status": string(r.Status),
				})
			}
			data := map[string]any{"workflow": wf.Metadata.Name, "passed": passed, "cases": cases}
			if runErr != nil {
				data["error"] = runErr.Error()
			}

			if format == helpers.FormatJSON {
				if err := helpers.WriteJSON(cmd.OutOrStdout(), data); err != nil {
					return err
				}
			} else {
				label := styles.Success.Render("PASS")
				if !passed {
					label = styles.Error.Render("FAIL")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", styles.Title.Render(wf.Metadata.Name), label)
				for _, c := range cases {
					cm := c.(map[string]any)
					fmt.Fprintf(cmd.OutOrStdout(), "  %-20s %s\n", cm["id"], cm["status"])
				}
			}
			if !passed {
				os.Exit(1)
			}
			return nil
		},
	}
	return cmd
}
