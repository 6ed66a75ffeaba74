package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"dario.cat/mergo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/flowscript/flowscript/cli/helpers"
	"github.com/flowscript/flowscript/engine/ast"
	"github.com/flowscript/flowscript/engine/execlog"
	"github.com/flowscript/flowscript/engine/executor"
	"github.com/flowscript/flowscript/engine/parser"
	"github.com/flowscript/flowscript/engine/persistence"
	"github.com/flowscript/flowscript/engine/planner"
	"github.com/flowscript/flowscript/engine/runtime"
	"github.com/flowscript/flowscript/engine/state"
	"github.com/flowscript/flowscript/engine/validator"
)

func newRunCmd() *cobra.Command {
	var dryRun bool
	var configFlags []string
	var inputJSON string
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Execute a workflow file end to end",
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

			mergedConfig, err := buildConfig(wf.Metadata, configFlags)
			if err != nil {
				return err
			}
			globalContext := map[string]any{}
			if inputJSON != "" {
				var input any
				if err := json.Unmarshal([]byte(inputJSON), &input); err != nil {
					return fmt.Errorf("parse --input: %w", err)
				}
				globalContext["input"] = input
			}
			secrets := secretsFromEnv(wf.Metadata.Secrets)

			if dryRun {
				return runDryPlan(cmd, wf, format, styles)
			}

			workflowDir := filepath.Dir(path)
			reg := runtime.NewRegistry()
			runtime.RegisterBuiltins(reg)

			ex := executor.New(reg, workflowDir)
			ex.Loader = &fileLoader{baseDir: workflowDir}

			st := state.New(wf.Metadata.Name, state.Options{
				Config: mergedConfig, Secrets: secrets, GlobalContext: globalContext,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runErr := ex.Run(ctx, wf, st)

			store := persistence.New(cfg.CLI.StateDir)
			if saveErr := store.Save(st); saveErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to persist state: %s\n", saveErr)
			}
			if logErr := execlog.Append(afero.NewOsFs(), path, st); logErr != nil {
				// Best effort: a missing/unwritable workflow file shouldn't
				// fail a run that otherwise completed.
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to append execution log: %s\n", logErr)
			}

			renderRunResult(cmd, format, styles, st, runErr)
			if runErr != nil {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan the workflow without executing it")
	cmd.Flags().StringArrayVarP(&configFlags, "set", "c", nil, "override a config field (key=value)")
	cmd.Flags().StringVar(&inputJSON, "input", "", "JSON value bound to globalContext.input")
	return cmd
}

// buildConfig overlays -c key=value flags (JSON-decoded when parseable)
// onto metadata.config's declared defaults, per scenario 5 (§8): merged
// config must reflect both the schema defaults and CLI overrides.
func buildConfig(meta ast.Metadata, flags []string) (map[string]any, error) {
	merged := map[string]any{}
	for name, field := range meta.Config {
		if field.Default != nil {
			merged[name] = field.Default
		}
	}
	overrides := map[string]any{}
	for _, pair := range flags {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid -c flag %q: expected key=value", pair)
		}
		overrides[k] = decodeConfigValue(v)
	}
	if err := mergo.Merge(&merged, overrides, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge config overrides: %w", err)
	}
	return merged, nil
}

func decodeConfigValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// secretsFromEnv resolves each declared secret name from the process
// environment — the CLI's own concern per §6 ("implementations must
// expose secrets via the execution state's secrets mapping; no ambient
// environment reads inside the core").
func secretsFromEnv(names []string) map[string]any {
	out := map[string]any{}
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok {
			out[name] = v
		}
	}
	return out
}

func runDryPlan(cmd *cobra.Command, wf *ast.Workflow, format helpers.Format, styles helpers.Styles) error {
	plan, err := planner.Plan(wf.Metadata.Name, wf.Nodes)
	if err != nil {
		return err
	}
	waves := make([]any, 0, len(plan.Waves))
	for _, w := range plan.Waves {
		waves = append(waves, map[string]any{"wave": w.WaveNumber, "nodes": w.NodeIDs})
	}
	if format == helpers.FormatJSON {
		return helpers.WriteJSON(cmd.OutOrStdout(), map[string]any{"dryRun": true, "waves": waves})
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.Title.Render("dry run — waves:"))
	for _, w := range waves {
		fmt.Fprintf(cmd.OutOrStdout(), "  %v\n", w)
	}
	return nil
}

func renderRunResult(cmd *cobra.Command, format helpers.Format, styles helpers.Styles, st *state.ExecutionState, runErr error) {
	results := st.NodeResults()
	nodeSummaries := make([]any, 0, len(results))
	for _, r := range results {
		nodeSummaries = append(nodeSummaries, map[string]any{
			"id": r.NodeID, "status": string(r.Status), "durationMs": r.Duration().Milliseconds(),
		})
	}
	data := map[string]any{
		"runId": st.RunID, "workflowId": st.WorkflowID,
		"status": string(st.Status), "nodes": nodeSummaries,
	}
	if runErr != nil {
		data["error"] = runErr.Error()
	}

	if format == helpers.FormatJSON {
		_ = helpers.WriteJSON(cmd.OutOrStdout(), data)
		return
	}
	statusLabel := styles.Success.Render(string(st.Status))
	if runErr != nil {
		statusLabel = styles.Error.Render(string(st.Status))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", styles.Title.Render("run"), st.RunID, statusLabel)
	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-20s %s\n", r.NodeID, r.Status)
	}
	if runErr != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", styles.Error.Render("error:"), runErr)
	}
}
