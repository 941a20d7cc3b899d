package filelock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWrite(t *testing.T) {
	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "file.png")
		require.NoError(t, AtomicWrite(path, []byte("data")))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "data", string(got))
	})

	t.Run("overwrites existing content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.png")
		require.NoError(t, os.WriteFile(path, []byte("old content that is longer"), 0644))
		require.NoError(t, AtomicWrite(path, []byte("new")))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(got))
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, AtomicWrite(filepath.Join(dir, "a.png"), []byte("x")))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "a.png", entries[0].Name())
	})
}

func TestLockAndWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.png")
	require.NoError(t, LockAndWrite(path, []byte("one")))
	require.NoError(t, LockAndWrite(path, []byte("two")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}

func TestLockAndWrite_KeepsLocksOutOfTheDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LockAndWrite(filepath.Join(dir, "home.png"), []byte("a")))
	require.NoError(t, LockAndWrite(filepath.Join(dir, "feed.png"), []byte("b")))

	entries, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "feed.png"),
		filepath.Join(dir, "home.png"),
		filepath.Join(dir, LockDir),
	}, entries)

	assert.Equal(t, filepath.Join(dir, ".locks", "home.png.lock"), LockPath(filepath.Join(dir, "home.png")))
	assert.FileExists(t, LockPath(filepath.Join(dir, "home.png")))
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "actual.png")
	dst := filepath.Join(dir, "baselines", "home.png")
	require.NoError(t, os.WriteFile(src, []byte{0x89, 'P', 'N', 'G'}, 0644))

	require.NoError(t, CopyFile(src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, got)

	assert.Error(t, CopyFile(filepath.Join(dir, "missing.png"), dst))
}
