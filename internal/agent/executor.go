package agent

import (
	"context"
	"fmt"
	"strings"

	"codeloop/internal/directive"
	"codeloop/internal/workspace"
)

// Result is the outcome of executing one directive. Transient: it is
// folded into the session history and the outbound notification, never
// stored on its own.
type Result struct {
	Directive directive.Directive
	Output    string
	Err       error
}

// Status maps the result onto the tool-call lifecycle.
func (r Result) Status() ToolStatus {
	if r.Err != nil {
		return StatusError
	}
	return StatusSuccess
}

// Executor dispatches parsed directives to workspace gateway operations
// and normalizes the result into a text payload. Per-directive errors are
// returned in the Result, never raised past it: one directive failing
// must not abort the ones after it.
type Executor struct {
	gateway *workspace.Gateway
}

// NewExecutor creates an executor over the given gateway.
func NewExecutor(gateway *workspace.Gateway) *Executor {
	return &Executor{gateway: gateway}
}

// Execute runs a single directive. Unknown kinds are rejected here as a
// safety net; the loop skips them before dispatch.
func (e *Executor) Execute(ctx context.Context, d directive.Directive) Result {
	res := Result{Directive: d}

	if !d.Kind.Known() {
		res.Err = fmt.Errorf("unknown directive kind %q", d.Kind)
		return res
	}

	if err := d.Validate(); err != nil {
		res.Err = err
		return res
	}

	switch d.Kind {
	case directive.KindReadFile:
		res.Output, res.Err = e.gateway.ReadFile(d.Path)

	case directive.KindWriteFile:
		res.Output, res.Err = e.gateway.WriteFile(d.Path, d.Body)

	case directive.KindReplaceLines:
		search, replace, err := d.ReplacePair()
		if err != nil {
			res.Err = err
			return res
		}
		res.Output, res.Err = e.gateway.ReplaceLines(d.Path, search, replace)

	case directive.KindListFiles:
		res.Output, res.Err = e.gateway.ListFiles()

	case directive.KindRunCommand:
		res.Output, res.Err = e.gateway.RunCommand(ctx, strings.TrimSpace(d.Body))

	case directive.KindRestoreFile:
		res.Output, res.Err = e.gateway.RestoreFile(d.Path)
	}

	return res
}
