package backup

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0644))

	store := NewStore()
	bakPath, err := store.Snapshot(path)
	require.NoError(t, err)
	require.NotEmpty(t, bakPath)

	data, err := os.ReadFile(bakPath)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestSnapshot_MissingFileIsNoOp(t *testing.T) {
	dir := t.TempDir()
	store := NewStore()

	bakPath, err := store.Snapshot(filepath.Join(dir, "missing.txt"))
	require.NoError(t, err)
	assert.Empty(t, bakPath)

	matches, _ := filepath.Glob(filepath.Join(dir, "*.bak.*"))
	assert.Empty(t, matches, "no backup files must be created")
}

func TestStamp_StrictlyIncreasing(t *testing.T) {
	store := NewStore()

	prev := ""
	for i := 0; i < 1000; i++ {
		stamp := store.stamp()
		if stamp <= prev {
			t.Fatalf("stamp %q not greater than previous %q", stamp, prev)
		}
		prev = stamp
	}
}

func TestLatest_PicksMostRecent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	store := NewStore()

	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))
	_, err := store.Snapshot(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0644))
	second, err := store.Snapshot(path)
	require.NoError(t, err)

	latest, err := store.Latest(path)
	require.NoError(t, err)
	assert.Equal(t, second, latest)

	data, err := os.ReadFile(latest)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestLatest_NoBackups(t *testing.T) {
	dir := t.TempDir()
	store := NewStore()

	_, err := store.Latest(filepath.Join(dir, "f.txt"))
	assert.ErrorIs(t, err, ErrNoBackupFound)
}

func TestRestore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	store := NewStore()

	require.NoError(t, os.WriteFile(path, []byte("keep me"), 0644))
	_, err := store.Snapshot(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("bad edit"), 0644))

	_, err = store.Restore(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestIsSnapshotPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	store := NewStore()

	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	bakPath, err := store.Snapshot(path)
	require.NoError(t, err)

	assert.True(t, IsSnapshotPath(bakPath))
	assert.False(t, IsSnapshotPath(path))
	assert.False(t, IsSnapshotPath("notes.bak.old"), "only the stamped suffix counts")
}

func TestList_SortedOldestFirst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	store := NewStore()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0644))
		_, err := store.Snapshot(path)
		require.NoError(t, err)
	}

	matches, err := store.List(path)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.True(t, sort.StringsAreSorted(matches))
}
