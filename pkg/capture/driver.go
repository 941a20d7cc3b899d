// Package capture takes checkpoint screenshots: single-screen captures and
// full-page sweeps that scroll, detect the end of content, and stitch or
// compare the segments against baselines.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mslinn/simsnap/pkg/baseline"
	"github.com/mslinn/simsnap/pkg/checksum"
	"github.com/mslinn/simsnap/pkg/device"
	"github.com/mslinn/simsnap/pkg/imagecmp"
	"github.com/mslinn/simsnap/pkg/overlap"
	"github.com/mslinn/simsnap/pkg/results"
	"github.com/mslinn/simsnap/pkg/stitch"
	"github.com/mslinn/simsnap/pkg/timing"
)

// Logger receives driver diagnostics. A nil Logger is silent.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
}

// Direction is the way content moves on screen.
type Direction int

const (
	// Down reveals content further down the page (finger drags up).
	Down Direction = iota
	// Up returns toward the start of the content.
	Up
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	if d == Up {
		return Down
	}
	return Up
}

// Request describes one checkpoint.
type Request struct {
	TestCaseID  string
	Name        string
	Tolerance   float64
	Update      bool
	ScrollToTop bool
	Stitch      *bool // overrides Config.Stitch when set
}

// Driver runs captures against one device. It is not safe for concurrent use.
type Driver struct {
	Device device.Device
	Config Config
	Store  *baseline.Store
	Log    Logger
	Sleep  timing.Sleeper
}

// NewDriver returns a Driver with defaults applied to cfg.
func NewDriver(dev device.Device, cfg Config, store *baseline.Store, log Logger) *Driver {
	return &Driver{
		Device: dev,
		Config: cfg.withDefaults(),
		Store:  store,
		Log:    log,
		Sleep:  timing.Sleep,
	}
}

func (d *Driver) debugf(format string, args ...any) {
	if d.Log != nil {
		d.Log.LogDebug(fmt.Sprintf(format, args...))
	}
}

func (d *Driver) infof(format string, args ...any) {
	if d.Log != nil {
		d.Log.LogInfo(fmt.Sprintf(format, args...))
	}
}

func (d *Driver) warnf(format string, args ...any) {
	if d.Log != nil {
		d.Log.LogWarn(fmt.Sprintf(format, args...))
	}
}

func (d *Driver) sleep(ctx context.Context) error {
	if d.Sleep == nil {
		return timing.Sleep(ctx, d.Config.SettleDelay)
	}
	return d.Sleep(ctx, d.Config.SettleDelay)
}

// Region queries the UI tree and picks the swipe region. A failed query falls
// back to the configured default center.
func (d *Driver) Region(ctx context.Context) Region {
	elements, err := d.Device.DescribeUI(ctx)
	if err != nil {
		d.warnf("UI query failed, using default region: %v", err)
		elements = nil
	}
	region := DetectRegion(elements, d.Config)
	d.debugf("scroll region %s: x=%.0f y=%.0f w=%.0f h=%.0f", region.Source, region.X, region.Y, region.Width, region.Height)
	return region
}

// swipePoints returns the drag for moving content by distance in dir, centred
// on the region and capped to 80% of its height. The returned distance is the
// one actually used.
func swipePoints(region Region, dir Direction, distance float64) (from, to device.Point, used float64) {
	if limit := region.Height * 0.8; limit > 0 && distance > limit {
		distance = limit
	}
	c := region.Center()
	half := distance / 2
	from = device.Point{X: c.X, Y: c.Y + half}
	to = device.Point{X: c.X, Y: c.Y - half}
	if dir == Up {
		from, to = to, from
	}
	return from, to, distance
}

// Scroll performs one slow drag, optionally taps the screen edge to stop
// residual inertia, and waits for the content to settle. It returns the
// logical distance dragged.
func (d *Driver) Scroll(ctx context.Context, region Region, dir Direction, distance float64) (float64, error) {
	from, to, used := swipePoints(region, dir, distance)
	if err := d.Device.Swipe(ctx, from, to, d.Config.SwipeDuration); err != nil {
		return 0, fmt.Errorf("swipe %s failed: %w", dir, err)
	}

	if d.Config.EdgeTap {
		edge := device.Point{X: 1, Y: region.Center().Y}
		if region.X > 0 {
			edge.X = region.X + 1
		}
		if err := d.Device.Tap(ctx, edge); err != nil {
			return 0, fmt.Errorf("edge tap failed: %w", err)
		}
	}

	if err := d.sleep(ctx); err != nil {
		return 0, err
	}
	return used, nil
}

// DetectScrollability reports whether the screen scrolls: it captures, drags a
// short distance, and captures again. When nothing changed it tries the other
// direction once, since the content may already sit at its end.
func (d *Driver) DetectScrollability(ctx context.Context, testCaseID string, region Region) (bool, error) {
	dir := filepath.Join(d.Store.CaseDir(testCaseID), ".probe")
	defer os.RemoveAll(dir)

	before := filepath.Join(dir, "probe_0.png")
	if err := d.Device.Screenshot(ctx, before); err != nil {
		return false, fmt.Errorf("screenshot failed: %w", err)
	}

	for i, direction := range []Direction{Down, Up} {
		if _, err := d.Scroll(ctx, region, direction, d.Config.TestScrollDistance); err != nil {
			return false, err
		}

		after := filepath.Join(dir, fmt.Sprintf("probe_%d.png", i+1))
		if err := d.Device.Screenshot(ctx, after); err != nil {
			return false, fmt.Errorf("screenshot failed: %w", err)
		}

		same, err := checksum.FilesIdentical(before, after)
		if err != nil {
			return false, err
		}
		if !same {
			d.debugf("content scrolls %s", direction)
			return true, nil
		}
	}

	d.debugf("content does not scroll")
	return false, nil
}

// ScrollToTop drags toward the start until two consecutive captures are
// identical or MaxScrollToTop drags were made. It returns the number of drags.
func (d *Driver) ScrollToTop(ctx context.Context, testCaseID string, region Region) (int, error) {
	dir := filepath.Join(d.Store.CaseDir(testCaseID), ".top")
	defer os.RemoveAll(dir)

	prev := filepath.Join(dir, "top_0.png")
	if err := d.Device.Screenshot(ctx, prev); err != nil {
		return 0, fmt.Errorf("screenshot failed: %w", err)
	}

	for n := 1; n <= d.Config.MaxScrollToTop; n++ {
		if _, err := d.Scroll(ctx, region, Up, d.Config.ScrollDistance); err != nil {
			return n, err
		}

		cur := filepath.Join(dir, fmt.Sprintf("top_%d.png", n))
		if err := d.Device.Screenshot(ctx, cur); err != nil {
			return n, fmt.Errorf("screenshot failed: %w", err)
		}

		same, err := checksum.FilesIdentical(prev, cur)
		if err != nil {
			return n, err
		}
		if same {
			d.debugf("reached top after %d drags", n)
			return n, nil
		}
		prev = cur
	}

	d.warnf("top not confirmed after %d drags", d.Config.MaxScrollToTop)
	return d.Config.MaxScrollToTop, nil
}

// CaptureSegments captures the current screen, then repeatedly scrolls and
// captures until a capture is byte-identical to the previous one (end of
// content, the duplicate is discarded) or MaxScrolls is reached. On error all
// segments captured so far are deleted.
func (d *Driver) CaptureSegments(ctx context.Context, testCaseID, name string, region Region) ([]string, error) {
	segDir := d.Store.SegmentDir(testCaseID, name)
	if err := os.RemoveAll(segDir); err != nil {
		return nil, fmt.Errorf("failed to clear segment directory: %w", err)
	}

	segments, err := d.captureLoop(ctx, testCaseID, name, region)
	if err != nil {
		os.RemoveAll(segDir)
		return nil, err
	}
	return segments, nil
}

func (d *Driver) captureLoop(ctx context.Context, testCaseID, name string, region Region) ([]string, error) {
	first := d.Store.SegmentPath(testCaseID, name, 0)
	if err := d.Device.Screenshot(ctx, first); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	segments := []string{first}

	for i := 1; i <= d.Config.MaxScrolls; i++ {
		dragged, err := d.Scroll(ctx, region, Down, d.Config.ScrollDistance)
		if err != nil {
			return nil, err
		}

		candidate := d.Store.SegmentPath(testCaseID, name, i)
		if err := d.Device.Screenshot(ctx, candidate); err != nil {
			return nil, fmt.Errorf("screenshot failed: %w", err)
		}

		prev := segments[len(segments)-1]
		same, err := checksum.FilesIdentical(prev, candidate)
		if err != nil {
			return nil, err
		}
		if same {
			os.Remove(candidate)
			d.debugf("end of content after %d segments", len(segments))
			return segments, nil
		}

		segments = append(segments, candidate)
		if d.Config.OverlapCheck {
			d.logOverlap(prev, candidate, int(dragged*d.Config.PixelScale))
		}
	}

	d.warnf("capture stopped at the %d scroll limit; content may continue", d.Config.MaxScrolls)
	return segments, nil
}

// logOverlap measures how far the last drag actually moved the content. The
// figure is only logged; segments are never adjusted.
func (d *Driver) logOverlap(prevPath, curPath string, expectedPx int) {
	if d.Log == nil {
		return
	}
	prev, err := imagecmp.Load(prevPath)
	if err != nil {
		d.debugf("overlap check skipped: %v", err)
		return
	}
	cur, err := imagecmp.Load(curPath)
	if err != nil {
		d.debugf("overlap check skipped: %v", err)
		return
	}

	r := overlap.FindOverlap(prev, cur, expectedPx, d.Config.Overlap)
	if r.Confidence == 0 {
		d.debugf("overlap: no reference strip for %s", filepath.Base(curPath))
		return
	}
	d.debugf("overlap %s: expected %dpx, actual %dpx, offset %+dpx, confidence %.2f",
		filepath.Base(curPath), expectedPx, r.ActualScroll(expectedPx), r.Offset, r.Confidence)
}

// Plain captures the screen and compares it with the baseline, or accepts it
// as the new baseline in update mode.
func (d *Driver) Plain(ctx context.Context, req Request) (*results.CheckpointResult, error) {
	actual := d.Store.ActualPath(req.TestCaseID, req.Name)
	if err := d.Device.Screenshot(ctx, actual); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return d.evaluate(req, actual, d.Store.BaselinePath(req.Name), d.Store.DiffPath(req.TestCaseID, req.Name))
}

// FullPage sweeps the scrollable region and compares the result, either as
// one stitched image or segment by segment.
func (d *Driver) FullPage(ctx context.Context, req Request) (*results.CheckpointResult, error) {
	region := d.Region(ctx)

	if req.ScrollToTop {
		if _, err := d.ScrollToTop(ctx, req.TestCaseID, region); err != nil {
			return nil, err
		}
	}

	segments, err := d.CaptureSegments(ctx, req.TestCaseID, req.Name, region)
	if err != nil {
		return nil, err
	}
	d.infof("captured %d segments for %s", len(segments), req.Name)

	stitched := d.Config.Stitch
	if req.Stitch != nil {
		stitched = *req.Stitch
	}

	var result *results.CheckpointResult
	if stitched {
		result, err = d.compareStitched(req, segments)
	} else {
		result, err = d.compareSegments(req, segments)
	}
	if err != nil {
		os.RemoveAll(d.Store.SegmentDir(req.TestCaseID, req.Name))
		return nil, err
	}

	result.IsFullPage = true
	result.SegmentPaths = segments
	return result, nil
}

func (d *Driver) compareStitched(req Request, segments []string) (*results.CheckpointResult, error) {
	actual := d.Store.ActualPath(req.TestCaseID, req.Name)
	if _, err := stitch.StitchVertically(segments, actual); err != nil {
		return nil, fmt.Errorf("stitch failed: %w", err)
	}
	return d.evaluate(req, actual, d.Store.BaselinePath(req.Name), d.Store.DiffPath(req.TestCaseID, req.Name))
}

// compareSegments matches when every segment matches; the ratio is the mean.
func (d *Driver) compareSegments(req Request, segments []string) (*results.CheckpointResult, error) {
	combined := &results.CheckpointResult{
		Name:         req.Name,
		Match:        true,
		BaselinePath: d.Store.SegmentBaselinePath(req.Name, 0),
		ActualPath:   d.Store.SegmentDir(req.TestCaseID, req.Name),
		Updated:      req.Update,
	}

	if req.Update {
		removed, err := d.Store.RemoveSegmentBaselines(req.Name, len(segments))
		if err != nil {
			return nil, err
		}
		if removed > 0 {
			d.infof("removed %d stale segment baselines for %s", removed, req.Name)
		}
	} else if n := d.Store.SegmentBaselineCount(req.Name); n > 0 && n != len(segments) {
		d.warnf("%s: captured %d segments but %d segment baselines exist", req.Name, len(segments), n)
	}

	var sum float64
	for i, seg := range segments {
		r, err := d.evaluate(req, seg,
			d.Store.SegmentBaselinePath(req.Name, i),
			d.Store.SegmentDiffPath(req.TestCaseID, req.Name, i))
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		combined.Match = combined.Match && r.Match
		combined.BaselineMissing = combined.BaselineMissing || r.BaselineMissing
		if combined.DiffPath == "" {
			combined.DiffPath = r.DiffPath
		}
		sum += r.DifferenceRatio
	}

	if len(segments) > 0 {
		combined.DifferenceRatio = sum / float64(len(segments))
	}
	combined.DifferencePercent = combined.DifferenceRatio * 100
	return combined, nil
}

// evaluate compares actual with its baseline, or in update mode writes actual
// over the baseline and reports a perfect match.
func (d *Driver) evaluate(req Request, actual, baselinePath, diffPath string) (*results.CheckpointResult, error) {
	result := &results.CheckpointResult{
		Name:         req.Name,
		BaselinePath: baselinePath,
		ActualPath:   actual,
	}

	if req.Update {
		if err := d.Store.Accept(actual, baselinePath); err != nil {
			return nil, err
		}
		result.Match = true
		result.Updated = true
		d.debugf("baseline updated: %s", baselinePath)
		return result, nil
	}

	cmp, err := imagecmp.Compare(actual, baselinePath, imagecmp.Options{
		Tolerance:    req.Tolerance,
		GenerateDiff: true,
		DiffPath:     diffPath,
	})
	if err != nil {
		return nil, err
	}

	result.Match = cmp.Match
	result.DifferenceRatio = cmp.DifferenceRatio
	result.DifferencePercent = cmp.DifferencePercent()
	result.DiffPath = cmp.DiffPath
	result.BaselineMissing = cmp.BaselineMissing
	if cmp.BaselineMissing {
		d.warnf("no baseline for %s at %s", req.Name, baselinePath)
	}
	return result, nil
}
