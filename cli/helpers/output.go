package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tidwall/pretty"

	"github.com/flowscript/flowscript/engine/ferrors"
)

// Format is the output rendering mode every command accepts via
// --format, per §6's CLI surface.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Styles bundles the lipgloss styles a text-mode renderer uses; building
// it once per invocation lets --no-color swap every style for a no-op
// identity style instead of branching at every print site.
type Styles struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warn    lipgloss.Style
	Dim     lipgloss.Style
}

// NewStyles builds Styles, disabling color entirely when noColor is set.
func NewStyles(noColor bool) Styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return Styles{Title: plain, Success: plain, Error: plain, Warn: plain, Dim: plain}
	}
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		Warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Dim:     lipgloss.NewStyle().Faint(true),
	}
}

// Envelope is the standard JSON response shape every command's --format
// json output is wrapped in.
type Envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *JSONError `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// JSONError is the error slot of an Envelope.
type JSONError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON marshals data as a pretty-printed, successful Envelope.
func WriteJSON(w io.Writer, data any) error {
	return writeEnvelope(w, Envelope{Success: true, Data: data, Timestamp: time.Now()})
}

// WriteJSONError marshals err as a failed Envelope.
func WriteJSONError(w io.Writer, err error) error {
	code, message := "ERROR", err.Error()
	switch e := err.(type) {
	case *ferrors.Error:
		code = string(e.Kind)
	case *CliError:
		code, message = e.Code, e.Message
	}
	return writeEnvelope(w, Envelope{
		Success:   false,
		Error:     &JSONError{Code: code, Message: message},
		Timestamp: time.Now(),
	})
}

func writeEnvelope(w io.Writer, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = w.Write(pretty.Pretty(raw))
	return err
}

// FerrorDetails renders the kind-specific detail map of a ferrors.Error
// for JSON/text diagnostics.
func FerrorDetails(e *ferrors.Error) map[string]any {
	if e == nil {
		return nil
	}
	out := map[string]any{"kind": string(e.Kind), "message": e.Message}
	if e.Loc != nil {
		out["line"] = e.Loc.Start.Line
		out["column"] = e.Loc.Start.Column
	}
	if len(e.Hints) > 0 {
		out["hints"] = e.Hints
	}
	return out
}
