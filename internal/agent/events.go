package agent

import "codeloop/internal/directive"

// ToolStatus is the lifecycle state of one directive execution.
type ToolStatus string

const (
	StatusRunning ToolStatus = "running"
	StatusSuccess ToolStatus = "success"
	StatusError   ToolStatus = "error"
)

// EventSink receives the loop's outbound notifications. The presentation
// layer implements this; the core never renders anything itself.
type EventSink interface {
	// Narrative delivers directive-stripped model text for display.
	Narrative(sessionID, turnID, text string)

	// ToolCall reports one directive's lifecycle. Emitted once with
	// StatusRunning before execution and once with the outcome after.
	ToolCall(sessionID, turnID string, kind directive.Kind, status ToolStatus, output string)

	// Working brackets a whole turn: true when the loop starts consuming
	// a user message, false when the turn ends for any reason.
	Working(sessionID string, working bool)

	// TurnError reports a turn-fatal failure (model endpoint error).
	TurnError(sessionID, turnID, message string)

	// FileWritten tells the presentation layer a file changed so it can
	// open or focus it. Advisory only.
	FileWritten(sessionID, path string)
}

// NopSink discards all events. Useful for tests and headless runs.
type NopSink struct{}

func (NopSink) Narrative(string, string, string)                                {}
func (NopSink) ToolCall(string, string, directive.Kind, ToolStatus, string)     {}
func (NopSink) Working(string, bool)                                            {}
func (NopSink) TurnError(string, string, string)                                {}
func (NopSink) FileWritten(string, string)                                      {}
