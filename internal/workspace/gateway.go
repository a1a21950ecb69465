// Package workspace is the sole boundary to the filesystem and process
// table. Every operation resolves paths against a single configured root
// and enforces the ignore-list policy before touching disk.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"codeloop/internal/backup"
	"codeloop/internal/logging"
)

// Gateway mediates all filesystem and command access for the agent.
type Gateway struct {
	mu      sync.RWMutex
	root    string
	ignore  map[string]struct{}
	runOpts RunOptions
	backups *backup.Store
}

// New creates a gateway rooted at root. An empty root means unconfigured:
// every operation fails with ErrNoWorkspace until SetRoot is called.
func New(root string, ignoreDirs []string, backups *backup.Store) *Gateway {
	g := &Gateway{
		runOpts: DefaultRunOptions(),
		backups: backups,
	}
	g.SetRoot(root)
	g.SetIgnoreDirs(ignoreDirs)
	return g
}

// SetRoot replaces the workspace root. Used at startup and on config reload.
func (g *Gateway) SetRoot(root string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.root = root
}

// SetIgnoreDirs replaces the ignored-directory set.
func (g *Gateway) SetIgnoreDirs(dirs []string) {
	ignore := make(map[string]struct{}, len(dirs))
	for _, d := range dirs {
		ignore[d] = struct{}{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ignore = ignore
}

// Root returns the configured workspace root.
func (g *Gateway) Root() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.root
}

// resolve normalizes a root-relative path and applies the access policy.
// Returns the absolute path on disk.
func (g *Gateway) resolve(path string) (string, error) {
	g.mu.RLock()
	root := g.root
	ignore := g.ignore
	g.mu.RUnlock()

	if root == "" {
		return "", ErrNoWorkspace
	}

	rel := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path escapes workspace: %s", ErrAccessDenied, path)
	}

	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if _, denied := ignore[seg]; denied {
			return "", fmt.Errorf("%w: ignored path segment %q in %s", ErrAccessDenied, seg, path)
		}
	}

	return filepath.Join(root, rel), nil
}

// ReadFile returns the decoded text content of a workspace file.
func (g *Gateway) ReadFile(path string) (string, error) {
	abs, err := g.resolve(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		logging.WorkspaceWarn("read failed: %s - %v", path, err)
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	logging.WorkspaceDebug("read %s (%d bytes)", path, len(data))
	return string(data), nil
}

// WriteFile overwrites a workspace file with content, creating parent
// directories as needed. An existing file is snapshotted first; a failed
// snapshot is logged and swallowed so the write still proceeds (the
// dominant case is a brand new file with nothing to preserve).
func (g *Gateway) WriteFile(path, content string) (string, error) {
	abs, err := g.resolve(path)
	if err != nil {
		return "", err
	}

	if _, err := g.backups.Snapshot(abs); err != nil {
		logging.BackupWarn("snapshot before write failed for %s: %v", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		logging.WorkspaceError("write failed: %s - %v", path, err)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	logging.Workspace("wrote %s (%d bytes)", path, len(content))
	return fmt.Sprintf("File written: %s", path), nil
}

// ReplaceLines replaces the first occurrence of search in the file with
// replace and rewrites it. The match is a literal substring; only the
// first hit is replaced, keeping edits minimal and predictable.
func (g *Gateway) ReplaceLines(path, search, replace string) (string, error) {
	abs, err := g.resolve(path)
	if err != nil {
		return "", err
	}

	if search == "" {
		return "", fmt.Errorf("%w: empty search text for %s", ErrSearchNotFound, path)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	content := string(data)
	if !strings.Contains(content, search) {
		logging.WorkspaceDebug("replace target absent in %s (%d byte search)", path, len(search))
		return "", fmt.Errorf("%w: in %s", ErrSearchNotFound, path)
	}

	if _, err := g.backups.Snapshot(abs); err != nil {
		logging.BackupWarn("snapshot before replace failed for %s: %v", path, err)
	}

	updated := strings.Replace(content, search, replace, 1)
	if err := os.WriteFile(abs, []byte(updated), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	logging.Workspace("replaced first occurrence in %s", path)
	return fmt.Sprintf("Replaced first occurrence in %s", path), nil
}

// ListFiles returns every file under the root except those in ignored
// directories and backup snapshots, newline-joined, in directory-walk
// order.
func (g *Gateway) ListFiles() (string, error) {
	g.mu.RLock()
	root := g.root
	ignore := g.ignore
	g.mu.RUnlock()

	if root == "" {
		return "", ErrNoWorkspace
	}

	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if _, denied := ignore[d.Name()]; denied {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if backup.IsSnapshotPath(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to list workspace files: %w", err)
	}

	logging.WorkspaceDebug("listed %d files under %s", len(files), root)
	return strings.Join(files, "\n"), nil
}

// RestoreFile copies the most recent backup of path over the live file.
func (g *Gateway) RestoreFile(path string) (string, error) {
	abs, err := g.resolve(path)
	if err != nil {
		return "", err
	}

	bakPath, err := g.backups.Restore(abs)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Restored %s from %s", path, filepath.Base(bakPath)), nil
}
