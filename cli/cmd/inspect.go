package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/flowscript/flowscript/cli/helpers"
	"github.com/flowscript/flowscript/engine/ast"
	"github.com/flowscript/flowscript/engine/parser"
	"github.com/flowscript/flowscript/engine/planner"
	"github.com/flowscript/flowscript/engine/validator"
)

func newInspectCmd() *cobra.Command {
	var showDeps, showSchema bool
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Summarize a workflow's metadata, node graph, and config schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			styles := helpers.NewStyles(cfg.CLI.NoColor)
			format := outputFormat(cfg)

			source, err := afero.ReadFile(afero.NewOsFs(), args[0])
			if err != nil {
				return helpers.NewCliError("ReadError", "failed to read workflow file", err.Error())
			}
			wf, parseErrs := parser.Parse(string(source), args[0])
			if len(parseErrs) > 0 {
				return parseErrs[0]
			}
			result := validator.Validate(wf, validator.Options{})

			report := map[string]any{
				"metadata": helpers.DumpWorkflow(wf)["metadata"],
				"nodeCount": len(ast.All(wf.Nodes)),
				"valid":     result.Valid,
			}
			if showDeps {
				plan, err := planner.Plan(wf.Metadata.Name, wf.Nodes)
				if err == nil {
					waves := make([]any, 0, len(plan.Waves))
					for _, w := range plan.Waves {
						waves = append(waves, map[string]any{"wave": w.WaveNumber, "nodes": w.NodeIDs})
					}
					report["waves"] = waves
				} else {
					report["planError"] = err.Error()
				}
			}
			if showSchema {
				report["schema"] = helpers.DumpWorkflow(wf)["metadata"].(map[string]any)["config"]
			}

			if format == helpers.FormatJSON {
				return helpers.WriteJSON(cmd.OutOrStdout(), report)
			}
			renderInspectText(cmd.OutOrStdout(), styles, wf, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showDeps, "deps", false, "include the computed execution waves")
	cmd.Flags().BoolVar(&showSchema, "schema", false, "include the metadata.config field schema")
	return cmd
}

func renderInspectText(w interface{ Write([]byte) (int, error) }, styles helpers.Styles, wf *ast.Workflow, report map[string]any) {
	fmt.Fprintf(w, "%s %s (v%s)\n", styles.Title.Render("workflow:"), wf.Metadata.Name, wf.Metadata.Version)
	fmt.Fprintf(w, "  nodes: %d\n", report["nodeCount"])
	validLabel := styles.Success.Render("valid")
	if v, ok := report["valid"].(bool); ok && !v {
		validLabel = styles.Error.Render("invalid")
	}
	fmt.Fprintf(w, "  status: %s\n", validLabel)
	if waves, ok := report["waves"].([]any); ok {
		fmt.Fprintln(w, styles.Dim.Render("  waves:"))
		for _, w0 := range waves {
			wm := w0.(map[string]any)
			fmt.Fprintf(w, "    [%v] %v\n", wm["wave"], wm["nodes"])
		}
	}
	if schema, ok := report["schema"]; ok && schema != nil {
		fmt.Fprintln(w, styles.Dim.Render("  config schema:"))
		fields, _ := schema.(map[string]any)
		for name, f := range fields {
			fmt.Fprintf(w, "    %s: %v\n", name, f)
		}
	}
}
