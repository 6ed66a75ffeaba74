// Package execlog renders a run's ExecutionState as a markdown block and
// splices it into a workflow file, grounded in the teacher's
// UpdateMainChangelogUseCase (afero-backed prepend/replace of a markdown
// section, pkg/release/internal/usecase/update_main_changelog_test.go).
package execlog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/flowscript/flowscript/engine/state"
)

const sectionHeading = "## Execution Log"

// Render produces the markdown execution-log block for st.
func Render(st *state.ExecutionState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", sectionHeading)
	fmt.Fprintf(&b, "- Run ID: %s\n", st.RunID)
	fmt.Fprintf(&b, "- Workflow ID: %s\n", st.WorkflowID)
	fmt.Fprintf(&b, "- Started: %s\n", st.StartedAt.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(&b, "- Duration: %.3fs\n", st.CompletedAt.Sub(st.StartedAt).Seconds())
	fmt.Fprintf(&b, "- Status: %s\n", st.Status)
	fmt.Fprintf(&b, "- Waves: %d\n\n", st.CurrentWave+1)

	results := st.NodeResults()
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].StartedAt.Before(results[j].StartedAt)
	})

	b.WriteString("| Node | Status | Duration | Output |\n")
	b.WriteString("|------|--------|----------|--------|\n")
	for _, r := range results {
		fmt.Fprintf(&b, "| %s | %s | %.3fs | %s |\n",
			escapePipes(r.NodeID), r.Status, r.Duration().Seconds(), truncateOutput(r))
	}
	return b.String()
}

func truncateOutput(r state.NodeResult) string {
	var s string
	if r.Err != nil {
		s = r.Err.Error()
	} else {
		s = fmt.Sprintf("%v", r.Output)
	}
	s = escapePipes(s)
	runes := []rune(s)
	if len(runes) > 50 {
		return string(runes[:50]) + "…"
	}
	return s
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// Append writes Render(st) into the workflow file at path, via fs. If the
// file already has a "## Execution Log" section, it's replaced in place;
// otherwise the block is appended beneath a "---" separator.
func Append(fs afero.Fs, path string, st *state.ExecutionState) error {
	existing := ""
	if data, err := afero.ReadFile(fs, path); err == nil {
		existing = string(data)
	}

	block := Render(st)

	updated, replaced := replaceSection(existing, block)
	if !replaced {
		if existing == "" {
			updated = block
		} else {
			updated = strings.TrimRight(existing, "\n") + "\n\n---\n\n" + block
		}
	}

	return afero.WriteFile(fs, path, []byte(updated), 0o644)
}

// replaceSection replaces an existing "## Execution Log" section (up to
// the next "## " heading or end of string) with block, in place.
func replaceSection(existing, block string) (string, bool) {
	start := strings.Index(existing, sectionHeading)
	if start == -1 {
		return "", false
	}
	rest := existing[start+len(sectionHeading):]
	end := len(existing)
	if next := strings.Index(rest, "\n## "); next != -1 {
		end = start + len(sectionHeading) + next + 1
	}
	return existing[:start] + block + existing[end:], true
}
