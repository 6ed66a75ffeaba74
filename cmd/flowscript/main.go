// Command flowscript is the CLI entry point: compile, validate, plan, and
// execute FlowScript workflow files. Grounded in the teacher's cli/main.go
// (a thin main that builds the root cobra command and executes it).
package main

import (
	"fmt"
	"os"

	"github.com/flowscript/flowscript/cli/cmd"
	"github.com/flowscript/flowscript/cli/helpers"
)

func main() {
	root := cmd.NewRootCmd()
	executed, err := root.ExecuteC()
	if err == nil {
		return
	}
	cfg := cmd.ConfigFromContext(executed.Context())
	if cfg.CLI.Format == "json" {
		_ = helpers.WriteJSONError(os.Stderr, err)
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}
