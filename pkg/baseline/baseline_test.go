package baseline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePaths(t *testing.T) {
	s := NewStore("/b", "/r", "run-1")

	assert.Equal(t, "/b/home.png", s.BaselinePath("home"))
	assert.Equal(t, "/b/feed_segment_2.png", s.SegmentBaselinePath("feed", 2))
	assert.Equal(t, "/r/run-1/login", s.CaseDir("login"))
	assert.Equal(t, "/r/run-1/login/home.png", s.ActualPath("login", "home"))
	assert.Equal(t, "/r/run-1/login/home_diff.png", s.DiffPath("login", "home"))
	assert.Equal(t, "/r/run-1/login/feed_segments/segment_004.png", s.SegmentPath("login", "feed", 4))
	assert.Equal(t, "/r/run-1/login/feed_segments/segment_004_diff.png", s.SegmentDiffPath("login", "feed", 4))
}

func TestNewStoreGeneratesRunID(t *testing.T) {
	a := NewStore("/b", "/r", "")
	b := NewStore("/b", "/r", "")

	_, err := uuid.Parse(a.RunID)
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestAccept(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "baselines"), filepath.Join(dir, "results"), "run")

	actual := s.ActualPath("tc", "home")
	require.NoError(t, os.MkdirAll(filepath.Dir(actual), 0755))
	require.NoError(t, os.WriteFile(actual, []byte("first"), 0644))

	require.NoError(t, s.Accept(actual, s.BaselinePath("home")))
	got, err := os.ReadFile(s.BaselinePath("home"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))

	require.NoError(t, os.WriteFile(actual, []byte("second"), 0644))
	require.NoError(t, s.Accept(actual, s.BaselinePath("home")))
	got, err = os.ReadFile(s.BaselinePath("home"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	err = s.Accept(filepath.Join(dir, "missing.png"), s.BaselinePath("other"))
	assert.Error(t, err)
	assert.False(t, Exists(s.BaselinePath("other")))
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, "", "")

	for _, name := range []string{"settings.png", "home.png", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"home", "settings"}, names)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Exists(filepath.Join(dir, "nope.png")))
	assert.False(t, Exists(dir))

	p := filepath.Join(dir, "yes.png")
	require.NoError(t, os.WriteFile(p, nil, 0644))
	assert.True(t, Exists(p))
}

func TestSegmentBaselines(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, filepath.Join(dir, "results"), "run")
	for i := 0; i < 4; i++ {
		require.NoError(t, os.WriteFile(s.SegmentBaselinePath("feed", i), []byte("png"), 0644))
	}
	assert.Equal(t, 4, s.SegmentBaselineCount("feed"))
	assert.Equal(t, 0, s.SegmentBaselineCount("other"))

	removed, err := s.RemoveSegmentBaselines("feed", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, s.SegmentBaselineCount("feed"))
	assert.FileExists(t, s.SegmentBaselinePath("feed", 1))
	assert.NoFileExists(t, s.SegmentBaselinePath("feed", 2))

	removed, err = s.RemoveSegmentBaselines("feed", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}
