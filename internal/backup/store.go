// Package backup creates and discovers timestamped file snapshots.
//
// A snapshot of path lives next to the original as path+".bak."+timestamp.
// The timestamp format is fixed width, so lexicographic order over the
// suffix is chronological order and the latest backup is the maximum.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"codeloop/internal/logging"
)

// ErrNoBackupFound is returned when a restore is requested for a path
// that has no snapshots.
var ErrNoBackupFound = errors.New("no backup found")

// stampLayout sorts lexicographically in chronological order.
const stampLayout = "20060102T150405.000000000"

// snapshotRe matches the suffix Snapshot appends.
var snapshotRe = regexp.MustCompile(`\.bak\.\d{8}T\d{6}\.\d{9}$`)

// IsSnapshotPath reports whether path names a snapshot produced by this
// store. Used to keep snapshots out of workspace listings.
func IsSnapshotPath(path string) bool {
	return snapshotRe.MatchString(path)
}

// Store creates and retrieves snapshots. The zero value is not usable;
// construct with NewStore.
type Store struct {
	mu   sync.Mutex
	last time.Time
}

// NewStore creates a backup store.
func NewStore() *Store {
	return &Store{}
}

// stamp returns a strictly increasing timestamp suffix. Two calls in the
// same nanosecond are forced apart so suffixes never collide.
func (s *Store) stamp() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Nanosecond)
	}
	s.last = now
	return now.Format(stampLayout)
}

// Snapshot copies the current content of path to a new backup file and
// returns the backup path. If path does not exist there is nothing to
// preserve: no backup is written and the empty string is returned.
func (s *Store) Snapshot(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logging.BackupDebug("no snapshot for %s: file does not exist", path)
			return "", nil
		}
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}

	bakPath := path + ".bak." + s.stamp()
	if err := copyFile(path, bakPath); err != nil {
		return "", fmt.Errorf("failed to snapshot %s: %w", path, err)
	}

	logging.Backup("snapshot created: %s", bakPath)
	return bakPath, nil
}

// List returns all backup paths for the given file, sorted oldest first.
func (s *Store) List(path string) ([]string, error) {
	matches, err := filepath.Glob(path + ".bak.*")
	if err != nil {
		return nil, fmt.Errorf("failed to list backups for %s: %w", path, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// Latest returns the most recent backup path for the given file.
func (s *Store) Latest(path string) (string, error) {
	matches, err := s.List(path)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoBackupFound, path)
	}
	return matches[len(matches)-1], nil
}

// Restore copies the most recent backup of path over the live file,
// overwriting whatever is there. Returns the backup path that was used.
func (s *Store) Restore(path string) (string, error) {
	bakPath, err := s.Latest(path)
	if err != nil {
		return "", err
	}

	if err := copyFile(bakPath, path); err != nil {
		return "", fmt.Errorf("failed to restore %s: %w", path, err)
	}

	logging.Backup("restored %s from %s", path, bakPath)
	return bakPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
