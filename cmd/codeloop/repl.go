package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"codeloop/internal/agent"
	"codeloop/internal/directive"

	"github.com/google/uuid"
)

// consoleSink renders loop events as plain lines on stdout. It is the
// presentation collaborator for the CLI; richer front ends implement
// agent.EventSink themselves.
type consoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

func (s *consoleSink) Narrative(sessionID, turnID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, strings.TrimSpace(text))
}

func (s *consoleSink) ToolCall(sessionID, turnID string, kind directive.Kind, status agent.ToolStatus, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch status {
	case agent.StatusRunning:
		fmt.Fprintf(s.out, "  [%s...]\n", kind)
	case agent.StatusError:
		fmt.Fprintf(s.out, "  [%s failed: %s]\n", kind, output)
	default:
		fmt.Fprintf(s.out, "  [%s ok]\n", kind)
	}
}

func (s *consoleSink) Working(sessionID string, working bool) {
	if working {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out)
}

func (s *consoleSink) TurnError(sessionID, turnID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "error: %s\n", message)
}

func (s *consoleSink) FileWritten(sessionID, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "  [changed: %s]\n", path)
}

// runInteractive reads user messages from stdin, one turn per line.
// :clear resets the conversation, :quit exits.
func runInteractive() error {
	app, cleanup, err := buildApp(loadedCfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID := uuid.NewString()
	fmt.Printf("codeloop - workspace: %s (session %s)\n", app.cfg.Workspace.Root, sessionID[:8])
	fmt.Println("type a message, :clear to reset, :quit to exit")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case ":quit", ":q", ":exit":
			app.loop.DeleteSession(sessionID)
			return nil
		case ":clear":
			app.loop.ClearSession(sessionID)
			fmt.Println("conversation cleared")
			continue
		}

		if err := app.loop.SendMessage(ctx, sessionID, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Turn-fatal errors were already surfaced through the sink;
			// the session stays usable for the next message.
		}
	}

	return scanner.Err()
}
