package agent

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"codeloop/internal/backup"
	"codeloop/internal/config"
	"codeloop/internal/directive"
	"codeloop/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T) (*Executor, string) {
	t.Helper()
	root := t.TempDir()
	gw := workspace.New(root, config.DefaultIgnoreDirs(), backup.NewStore())
	return NewExecutor(gw), root
}

func TestExecute_WriteAndRead(t *testing.T) {
	e, _ := newTestExecutor(t)
	ctx := context.Background()

	res := e.Execute(ctx, directive.Directive{
		Kind: directive.KindWriteFile,
		Path: "hello.txt",
		Body: "hi there",
	})
	require.NoError(t, res.Err)
	assert.Equal(t, StatusSuccess, res.Status())
	assert.Contains(t, res.Output, "hello.txt")

	res = e.Execute(ctx, directive.Directive{
		Kind: directive.KindReadFile,
		Path: "hello.txt",
	})
	require.NoError(t, res.Err)
	assert.Equal(t, "hi there", res.Output)
}

func TestExecute_ReplaceLines(t *testing.T) {
	e, _ := newTestExecutor(t)
	ctx := context.Background()

	res := e.Execute(ctx, directive.Directive{
		Kind: directive.KindWriteFile,
		Path: "f.txt",
		Body: "one two one",
	})
	require.NoError(t, res.Err)

	res = e.Execute(ctx, directive.Directive{
		Kind: directive.KindReplaceLines,
		Path: "f.txt",
		Body: "<search>one</search><replace>1</replace>",
	})
	require.NoError(t, res.Err)

	res = e.Execute(ctx, directive.Directive{Kind: directive.KindReadFile, Path: "f.txt"})
	require.NoError(t, res.Err)
	assert.Equal(t, "1 two one", res.Output)
}

func TestExecute_MalformedReplaceCausesNoMutation(t *testing.T) {
	e, root := newTestExecutor(t)
	ctx := context.Background()

	res := e.Execute(ctx, directive.Directive{
		Kind: directive.KindWriteFile,
		Path: "f.txt",
		Body: "untouched",
	})
	require.NoError(t, res.Err)

	res = e.Execute(ctx, directive.Directive{
		Kind: directive.KindReplaceLines,
		Path: "f.txt",
		Body: "<search>untouched</search>", // missing <replace>
	})
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, directive.ErrMalformed)
	assert.Equal(t, StatusError, res.Status())

	data, err := os.ReadFile(filepath.Join(root, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "untouched", string(data))

	// And no backup was taken either: the directive never reached disk.
	baks, _ := filepath.Glob(filepath.Join(root, "f.txt.bak.*"))
	assert.Empty(t, baks)
}

func TestExecute_ListFiles(t *testing.T) {
	e, _ := newTestExecutor(t)
	ctx := context.Background()

	e.Execute(ctx, directive.Directive{Kind: directive.KindWriteFile, Path: "a.txt", Body: "1"})
	e.Execute(ctx, directive.Directive{Kind: directive.KindWriteFile, Path: "b.txt", Body: "2"})

	res := e.Execute(ctx, directive.Directive{Kind: directive.KindListFiles})
	require.NoError(t, res.Err)
	assert.Contains(t, res.Output, "a.txt")
	assert.Contains(t, res.Output, "b.txt")
}

func TestExecute_RunCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix shell test")
	}
	e, _ := newTestExecutor(t)

	// The command line travels in the body; no path attribute exists.
	res := e.Execute(context.Background(), directive.Directive{
		Kind: directive.KindRunCommand,
		Body: "\necho from the shell\n",
	})
	require.NoError(t, res.Err)
	assert.Equal(t, StatusSuccess, res.Status())
	assert.Contains(t, res.Output, "from the shell")
}

func TestExecute_RestoreFile(t *testing.T) {
	e, _ := newTestExecutor(t)
	ctx := context.Background()

	e.Execute(ctx, directive.Directive{Kind: directive.KindWriteFile, Path: "f.txt", Body: "v1"})
	e.Execute(ctx, directive.Directive{Kind: directive.KindWriteFile, Path: "f.txt", Body: "v2"})

	res := e.Execute(ctx, directive.Directive{Kind: directive.KindRestoreFile, Path: "f.txt"})
	require.NoError(t, res.Err)

	res = e.Execute(ctx, directive.Directive{Kind: directive.KindReadFile, Path: "f.txt"})
	require.NoError(t, res.Err)
	assert.Equal(t, "v1", res.Output)
}

func TestExecute_UnknownKind(t *testing.T) {
	e, _ := newTestExecutor(t)

	res := e.Execute(context.Background(), directive.Directive{Kind: "teleport"})
	require.Error(t, res.Err)
	assert.Equal(t, StatusError, res.Status())
}

func TestExecute_MissingPath(t *testing.T) {
	e, _ := newTestExecutor(t)

	res := e.Execute(context.Background(), directive.Directive{Kind: directive.KindReadFile})
	assert.ErrorIs(t, res.Err, directive.ErrMalformed)
}

func TestExecute_AccessDeniedPropagates(t *testing.T) {
	e, _ := newTestExecutor(t)

	res := e.Execute(context.Background(), directive.Directive{
		Kind: directive.KindReadFile,
		Path: "node_modules/x.js",
	})
	assert.ErrorIs(t, res.Err, workspace.ErrAccessDenied)
}
