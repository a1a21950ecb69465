package workspace

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"time"

	"codeloop/internal/logging"
)

// RunOptions bounds command execution.
type RunOptions struct {
	// Timeout kills the command when exceeded.
	Timeout time.Duration

	// MaxOutputBytes caps combined stdout/stderr capture. Output past the
	// cap is discarded and the result carries a truncation marker.
	MaxOutputBytes int64
}

// DefaultRunOptions returns the execution bounds used when none are set.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		Timeout:        60 * time.Second,
		MaxOutputBytes: 1 << 20,
	}
}

// SetRunOptions replaces the execution bounds. Used on config reload.
func (g *Gateway) SetRunOptions(opts RunOptions) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRunOptions().Timeout
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = DefaultRunOptions().MaxOutputBytes
	}
	g.mu.Lock()
	g.runOpts = opts
	g.mu.Unlock()
}

// RunCommand spawns a shell running commandLine with the workspace root as
// working directory and returns the combined output. A non-zero exit code
// is annotated in the text rather than returned as an error: the command
// ran, and its outcome belongs to the conversation. Only a process that
// could not be spawned at all is an ErrExec.
func (g *Gateway) RunCommand(ctx context.Context, commandLine string) (string, error) {
	g.mu.RLock()
	root := g.root
	opts := g.runOpts
	g.mu.RUnlock()

	if root == "" {
		return "", ErrNoWorkspace
	}

	logging.Workspace("running command: %s", commandLine)

	execCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(execCtx, "cmd", "/C", commandLine)
	} else {
		cmd = exec.CommandContext(execCtx, "sh", "-c", commandLine)
	}
	cmd.Dir = root

	var buf bytes.Buffer
	limited := &limitedWriter{w: &buf, max: opts.MaxOutputBytes}
	cmd.Stdout = limited
	cmd.Stderr = limited

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	output := buf.String()
	if limited.truncated {
		output += fmt.Sprintf("\n[output truncated: %d bytes discarded]", limited.discarded)
		logging.WorkspaceWarn("command output truncated: %d bytes discarded", limited.discarded)
	}

	switch {
	case err == nil:
		logging.WorkspaceDebug("command succeeded in %s", elapsed)
		return output, nil

	case execCtx.Err() == context.DeadlineExceeded:
		logging.WorkspaceWarn("command killed after %s: %s", opts.Timeout, commandLine)
		return output + fmt.Sprintf("\n[command timed out after %s]", opts.Timeout), nil

	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			logging.WorkspaceDebug("command exited non-zero: %d", exitErr.ExitCode())
			return output + fmt.Sprintf("\n[exit code %d]", exitErr.ExitCode()), nil
		}
		logging.WorkspaceError("command spawn failed: %s - %v", commandLine, err)
		return "", fmt.Errorf("%w: %v", ErrExec, err)
	}
}

// limitedWriter caps total bytes written, discarding the excess while
// reporting full writes so the child process never sees a short write.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		lw.discarded += int64(n) - remaining
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
