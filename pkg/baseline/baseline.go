// Package baseline lays out checkpoint artifacts on disk: accepted baselines in
// one flat directory, per-run actual and diff images under a results tree.
//
//	<baselines>/<name>.png
//	<baselines>/<name>_segment_<i>.png
//	<results>/<run>/<testCase>/<name>.png
//	<results>/<run>/<testCase>/<name>_diff.png
//	<results>/<run>/<testCase>/<name>_segments/segment_<i>.png
//
// Checkpoint names are used verbatim as file stems. Two checkpoints sharing a
// name overwrite each other's artifacts.
package baseline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/mslinn/simsnap/pkg/filelock"
)

// Store resolves artifact paths for one run.
type Store struct {
	BaselineDir string
	ResultsDir  string
	RunID       string
}

// NewStore returns a Store for the given directories and run id. An empty
// runID gets a fresh UUID.
func NewStore(baselineDir, resultsDir, runID string) *Store {
	if runID == "" {
		runID = uuid.New().String()
	}
	return &Store{
		BaselineDir: baselineDir,
		ResultsDir:  resultsDir,
		RunID:       runID,
	}
}

// BaselinePath returns the accepted baseline for a checkpoint.
func (s *Store) BaselinePath(name string) string {
	return filepath.Join(s.BaselineDir, name+".png")
}

// SegmentBaselinePath returns the per-segment baseline used when stitching is off.
func (s *Store) SegmentBaselinePath(name string, index int) string {
	return filepath.Join(s.BaselineDir, fmt.Sprintf("%s_segment_%d.png", name, index))
}

// CaseDir returns the results directory of one test case in this run.
func (s *Store) CaseDir(testCaseID string) string {
	return filepath.Join(s.ResultsDir, s.RunID, testCaseID)
}

// ActualPath returns where the capture of a checkpoint is written.
func (s *Store) ActualPath(testCaseID, name string) string {
	return filepath.Join(s.CaseDir(testCaseID), name+".png")
}

// DiffPath returns where the diff visualisation of a checkpoint is written.
func (s *Store) DiffPath(testCaseID, name string) string {
	return filepath.Join(s.CaseDir(testCaseID), name+"_diff.png")
}

// SegmentDir returns the directory holding raw full-page segments.
func (s *Store) SegmentDir(testCaseID, name string) string {
	return filepath.Join(s.CaseDir(testCaseID), name+"_segments")
}

// SegmentPath returns the path of raw segment index.
func (s *Store) SegmentPath(testCaseID, name string, index int) string {
	return filepath.Join(s.SegmentDir(testCaseID, name), fmt.Sprintf("segment_%03d.png", index))
}

// SegmentDiffPath returns the diff path of one segment in non-stitched mode.
func (s *Store) SegmentDiffPath(testCaseID, name string, index int) string {
	return filepath.Join(s.SegmentDir(testCaseID, name), fmt.Sprintf("segment_%03d_diff.png", index))
}

// Accept replaces the baseline at baselinePath with the file at actualPath.
// The write is whole-file: readers see either the old or the new baseline.
func (s *Store) Accept(actualPath, baselinePath string) error {
	if err := filelock.CopyFile(actualPath, baselinePath); err != nil {
		return fmt.Errorf("failed to accept baseline %s: %w", filepath.Base(baselinePath), err)
	}
	return nil
}

// SegmentBaselineCount returns how many consecutive segment baselines of name
// exist, counting from index 0.
func (s *Store) SegmentBaselineCount(name string) int {
	n := 0
	for Exists(s.SegmentBaselinePath(name, n)) {
		n++
	}
	return n
}

// RemoveSegmentBaselines deletes the segment baselines of name from index from
// upward and returns how many were removed.
func (s *Store) RemoveSegmentBaselines(name string, from int) (int, error) {
	removed := 0
	for i := from; Exists(s.SegmentBaselinePath(name, i)); i++ {
		if err := os.Remove(s.SegmentBaselinePath(name, i)); err != nil {
			return removed, fmt.Errorf("failed to remove stale baseline: %w", err)
		}
		removed++
	}
	return removed, nil
}

// Exists reports whether a regular file exists at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// List returns the checkpoint names that have a baseline, sorted.
func (s *Store) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.BaselineDir, "*.png"))
	if err != nil {
		return nil, fmt.Errorf("failed to list baselines: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		names = append(names, base[:len(base)-len(".png")])
	}
	return names, nil
}
