// Package agent implements the iterative model/tool loop.
//
// One turn: append the user message, then repeatedly prompt the model with
// the full history, execute any tool directives in its reply, and feed the
// outputs back, until a reply carries no directives or the iteration cap
// is reached. A session runs at most one turn at a time; distinct sessions
// run independently.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"codeloop/internal/audit"
	"codeloop/internal/directive"
	"codeloop/internal/logging"
	"codeloop/internal/model"
	"codeloop/internal/session"

	"github.com/google/uuid"
)

// DefaultMaxLoops caps model/tool iterations per turn.
const DefaultMaxLoops = 10

// systemInstruction is prepended to every prompt. It teaches the model the
// tool protocol the parser consumes.
const systemInstruction = `You are a coding assistant with direct access to the user's project.
To use a tool, embed a directive in your reply:

<tool code="read_file" path="relative/path">...</tool>
<tool code="write_file" path="relative/path">full new file content</tool>
<tool code="replace_lines" path="relative/path"><search>exact text to find</search><replace>replacement text</replace></tool>
<tool code="list_files"></tool>
<tool code="run_command">shell command</tool>
<tool code="restore_file" path="relative/path"></tool>

Tool outputs are appended to the conversation as system messages so you can
react to them in your next reply. replace_lines changes only the first
occurrence of the search text. When you are done, reply without directives.`

// Loop orchestrates turns for all sessions.
type Loop struct {
	sessions *session.Store
	client   model.Client
	executor *Executor
	sink     EventSink

	mu       sync.Mutex
	maxLoops int
	trail    *audit.Trail
	turns    map[string]*sync.Mutex
}

// New creates an agent loop. sink must not be nil; pass NopSink for
// headless use.
func New(sessions *session.Store, client model.Client, executor *Executor, sink EventSink) *Loop {
	return &Loop{
		sessions: sessions,
		client:   client,
		executor: executor,
		sink:     sink,
		maxLoops: DefaultMaxLoops,
		turns:    make(map[string]*sync.Mutex),
	}
}

// SetMaxLoops replaces the per-turn iteration cap. Values below one keep
// the default.
func (l *Loop) SetMaxLoops(n int) {
	if n < 1 {
		n = DefaultMaxLoops
	}
	l.mu.Lock()
	l.maxLoops = n
	l.mu.Unlock()
}

// SetAuditTrail attaches an optional audit trail. Audit failures are
// logged and swallowed.
func (l *Loop) SetAuditTrail(trail *audit.Trail) {
	l.mu.Lock()
	l.trail = trail
	l.mu.Unlock()
}

// turnLock returns the per-session mutex serializing turns.
func (l *Loop) turnLock(sessionID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.turns[sessionID]
	if !ok {
		m = &sync.Mutex{}
		l.turns[sessionID] = m
	}
	return m
}

// SendMessage runs one full turn for the session. It blocks until the
// model delivers a final directive-free answer, the iteration cap is hit,
// or a turn-fatal error occurs.
func (l *Loop) SendMessage(ctx context.Context, sessionID, text string) error {
	turn := l.turnLock(sessionID)
	turn.Lock()
	defer turn.Unlock()

	l.mu.Lock()
	maxLoops := l.maxLoops
	trail := l.trail
	l.mu.Unlock()

	turnID := uuid.NewString()
	logging.Loop("turn started: session=%s turn=%s", sessionID, turnID)

	l.sink.Working(sessionID, true)
	defer l.sink.Working(sessionID, false)

	l.sessions.Append(sessionID, session.Message{Role: session.RoleUser, Content: text})

	for i := 0; i < maxLoops; i++ {
		prompt := l.buildPrompt(sessionID)

		reply, err := l.client.Complete(ctx, prompt)
		if err != nil {
			logging.LoopError("turn aborted: session=%s turn=%s iteration=%d: %v", sessionID, turnID, i, err)
			l.sink.TurnError(sessionID, turnID, err.Error())
			return err
		}

		l.sessions.Append(sessionID, session.Message{Role: session.RoleAssistant, Content: reply})

		directives, narrative := directive.Parse(reply)
		if strings.TrimSpace(narrative) != "" {
			l.sink.Narrative(sessionID, turnID, narrative)
		}

		if len(directives) == 0 {
			logging.Loop("turn finished: session=%s turn=%s iterations=%d", sessionID, turnID, i+1)
			return nil
		}

		l.runDirectives(ctx, sessionID, turnID, directives, trail)
	}

	logging.LoopWarn("turn hit iteration cap: session=%s turn=%s max=%d", sessionID, turnID, maxLoops)
	return nil
}

// runDirectives executes a reply's directives in document order. A failed
// directive is recorded and the remaining ones still run.
func (l *Loop) runDirectives(ctx context.Context, sessionID, turnID string, directives []directive.Directive, trail *audit.Trail) {
	for _, d := range directives {
		if !d.Kind.Known() {
			logging.LoopDebug("skipping unknown directive kind %q: session=%s", d.Kind, sessionID)
			continue
		}

		l.sink.ToolCall(sessionID, turnID, d.Kind, StatusRunning, "")

		start := time.Now()
		res := l.executor.Execute(ctx, d)
		elapsed := time.Since(start)

		if res.Err != nil {
			msg := fmt.Sprintf("Error (%s): %s", d.Kind, res.Err.Error())
			l.sessions.Append(sessionID, session.Message{Role: session.RoleSystem, Content: msg})
			l.sink.ToolCall(sessionID, turnID, d.Kind, StatusError, res.Err.Error())
		} else {
			msg := fmt.Sprintf("Tool Output (%s): %s", d.Kind, res.Output)
			l.sessions.Append(sessionID, session.Message{Role: session.RoleSystem, Content: msg})
			l.sink.ToolCall(sessionID, turnID, d.Kind, StatusSuccess, res.Output)
			if d.Kind == directive.KindWriteFile || d.Kind == directive.KindReplaceLines || d.Kind == directive.KindRestoreFile {
				l.sink.FileWritten(sessionID, d.Path)
			}
		}

		if trail != nil {
			detail := res.Output
			if res.Err != nil {
				detail = res.Err.Error()
			}
			if err := trail.Append(audit.Record{
				SessionID: sessionID,
				TurnID:    turnID,
				Kind:      string(d.Kind),
				Path:      d.Path,
				Status:    string(res.Status()),
				Detail:    detail,
				Duration:  elapsed,
			}); err != nil {
				logging.AuditWarn("failed to record execution: %v", err)
			}
		}
	}
}

// buildPrompt renders the fixed instruction, the full ordered history, and
// the assistant cue into one prompt string.
func (l *Loop) buildPrompt(sessionID string) string {
	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\n")

	for _, msg := range l.sessions.History(sessionID) {
		switch msg.Role {
		case session.RoleUser:
			b.WriteString("User: ")
		case session.RoleAssistant:
			b.WriteString("Assistant: ")
		case session.RoleSystem:
			b.WriteString("System: ")
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}

	b.WriteString("Assistant:")
	return b.String()
}

// ClearSession empties a session's history. Safe to call while a turn is
// in flight: the store serializes it against loop appends.
func (l *Loop) ClearSession(sessionID string) {
	l.sessions.Clear(sessionID)
}

// DeleteSession removes a session's history. It takes the turn lock
// first, so an in-flight turn finishes before the history goes away, and
// the lock itself is retained: a message sent under the same id later
// still serializes against everything that came before.
func (l *Loop) DeleteSession(sessionID string) {
	turn := l.turnLock(sessionID)
	turn.Lock()
	defer turn.Unlock()
	l.sessions.Delete(sessionID)
}
