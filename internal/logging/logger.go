// Package logging provides categorized logging for codeloop subsystems.
// Each subsystem logs under its own category; categories can be disabled
// individually via config so a noisy subsystem can be silenced without
// losing the rest. Before Initialize is called all logging is a no-op.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies the subsystem a log line belongs to.
type Category string

const (
	CategoryLoop      Category = "loop"      // Agent loop orchestration
	CategoryParser    Category = "parser"    // Tool directive parsing
	CategoryWorkspace Category = "workspace" // Filesystem and command execution
	CategoryBackup    Category = "backup"    // Snapshot create/restore
	CategorySession   Category = "session"   // Session store
	CategoryModel     Category = "model"     // Model endpoint calls
	CategoryAudit     Category = "audit"     // Audit trail persistence
	CategoryConfig    Category = "config"    // Config load and reload
)

// Options controls logger construction.
type Options struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string

	// Development switches to zap's console encoder.
	Development bool

	// Categories maps category name to enabled. An empty map enables all.
	Categories map[string]bool
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	enabled map[string]bool
)

// Initialize builds the underlying zap logger. Safe to call more than once;
// the most recent call wins (config reload re-initializes).
func Initialize(opts Options) error {
	level := zapcore.InfoLevel
	switch opts.Level {
	case "", "info":
	case "debug":
		level = zapcore.DebugLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		return fmt.Errorf("unknown log level %q", opts.Level)
	}

	cfg := zap.NewProductionConfig()
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	mu.Lock()
	base = logger
	enabled = opts.Categories
	mu.Unlock()
	return nil
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.RLock()
	logger := base
	mu.RUnlock()
	_ = logger.Sync()
}

// For returns a named sugared logger for ad-hoc structured logging
// under the given category.
func For(cat Category) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return base.Named(string(cat)).Sugar()
}

func logf(cat Category, level zapcore.Level, format string, args ...interface{}) {
	mu.RLock()
	logger := base
	on := len(enabled) == 0 || enabled[string(cat)]
	mu.RUnlock()

	if !on {
		return
	}

	sugar := logger.WithOptions(zap.AddCallerSkip(2)).Named(string(cat)).Sugar()
	switch level {
	case zapcore.DebugLevel:
		sugar.Debugf(format, args...)
	case zapcore.WarnLevel:
		sugar.Warnf(format, args...)
	case zapcore.ErrorLevel:
		sugar.Errorf(format, args...)
	default:
		sugar.Infof(format, args...)
	}
}

// Per-category helpers. The bare form logs at info.

func Loop(format string, args ...interface{})      { logf(CategoryLoop, zapcore.InfoLevel, format, args...) }
func LoopDebug(format string, args ...interface{}) { logf(CategoryLoop, zapcore.DebugLevel, format, args...) }
func LoopWarn(format string, args ...interface{})  { logf(CategoryLoop, zapcore.WarnLevel, format, args...) }
func LoopError(format string, args ...interface{}) { logf(CategoryLoop, zapcore.ErrorLevel, format, args...) }

func Parser(format string, args ...interface{})      { logf(CategoryParser, zapcore.InfoLevel, format, args...) }
func ParserDebug(format string, args ...interface{}) { logf(CategoryParser, zapcore.DebugLevel, format, args...) }
func ParserWarn(format string, args ...interface{})  { logf(CategoryParser, zapcore.WarnLevel, format, args...) }

func Workspace(format string, args ...interface{}) {
	logf(CategoryWorkspace, zapcore.InfoLevel, format, args...)
}
func WorkspaceDebug(format string, args ...interface{}) {
	logf(CategoryWorkspace, zapcore.DebugLevel, format, args...)
}
func WorkspaceWarn(format string, args ...interface{}) {
	logf(CategoryWorkspace, zapcore.WarnLevel, format, args...)
}
func WorkspaceError(format string, args ...interface{}) {
	logf(CategoryWorkspace, zapcore.ErrorLevel, format, args...)
}

func Backup(format string, args ...interface{})      { logf(CategoryBackup, zapcore.InfoLevel, format, args...) }
func BackupDebug(format string, args ...interface{}) { logf(CategoryBackup, zapcore.DebugLevel, format, args...) }
func BackupWarn(format string, args ...interface{})  { logf(CategoryBackup, zapcore.WarnLevel, format, args...) }

func Session(format string, args ...interface{})      { logf(CategorySession, zapcore.InfoLevel, format, args...) }
func SessionDebug(format string, args ...interface{}) { logf(CategorySession, zapcore.DebugLevel, format, args...) }

func Model(format string, args ...interface{})      { logf(CategoryModel, zapcore.InfoLevel, format, args...) }
func ModelDebug(format string, args ...interface{}) { logf(CategoryModel, zapcore.DebugLevel, format, args...) }
func ModelWarn(format string, args ...interface{})  { logf(CategoryModel, zapcore.WarnLevel, format, args...) }

func Audit(format string, args ...interface{})      { logf(CategoryAudit, zapcore.InfoLevel, format, args...) }
func AuditWarn(format string, args ...interface{})  { logf(CategoryAudit, zapcore.WarnLevel, format, args...) }
func AuditError(format string, args ...interface{}) { logf(CategoryAudit, zapcore.ErrorLevel, format, args...) }

func Config(format string, args ...interface{})      { logf(CategoryConfig, zapcore.InfoLevel, format, args...) }
func ConfigDebug(format string, args ...interface{}) { logf(CategoryConfig, zapcore.DebugLevel, format, args...) }
func ConfigWarn(format string, args ...interface{})  { logf(CategoryConfig, zapcore.WarnLevel, format, args...) }
