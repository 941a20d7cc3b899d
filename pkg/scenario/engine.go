package scenario

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mslinn/simsnap/pkg/capture"
	"github.com/mslinn/simsnap/pkg/device"
	"github.com/mslinn/simsnap/pkg/results"
	"github.com/mslinn/simsnap/pkg/timing"
)

// Recorder persists run progress. Recording failures are logged, never fatal.
type Recorder interface {
	BeginRun(r *results.TestCaseResult) error
	RecordStep(r *results.TestCaseResult, s results.StepResult) error
	FinishRun(r *results.TestCaseResult) error
}

// Engine runs test cases strictly sequentially against one device.
type Engine struct {
	Device   device.Device
	Driver   *capture.Driver
	Recorder Recorder
	Log      capture.Logger
	// OnStep is called after every executed step.
	OnStep func(results.StepResult)

	UpdateMode bool
	Tolerance  float64

	PollInterval      time.Duration
	ElementTimeout    time.Duration
	MaxElementScrolls int

	Sleep timing.Sleeper
	Now   func() time.Time
}

// NewEngine returns an Engine with default polling and timing.
func NewEngine(dev device.Device, driver *capture.Driver, log capture.Logger) *Engine {
	return &Engine{
		Device:            dev,
		Driver:            driver,
		Log:               log,
		PollInterval:      500 * time.Millisecond,
		ElementTimeout:    10 * time.Second,
		MaxElementScrolls: 10,
		Sleep:             timing.Sleep,
		Now:               time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep == nil {
		return timing.Sleep(ctx, d)
	}
	return e.Sleep(ctx, d)
}

func (e *Engine) debugf(format string, args ...any) {
	if e.Log != nil {
		e.Log.LogDebug(fmt.Sprintf(format, args...))
	}
}

func (e *Engine) warnf(format string, args ...any) {
	if e.Log != nil {
		e.Log.LogWarn(fmt.Sprintf(format, args...))
	}
}

// Run executes tc and always returns its result. Steps run in order; the first
// hard failure is recorded on its step, ends the test case, and is returned as
// a *StepError. Checkpoint mismatches fail their step without stopping the run.
func (e *Engine) Run(ctx context.Context, tc TestCase) (*results.TestCaseResult, error) {
	res := &results.TestCaseResult{
		ID:         tc.ID,
		Name:       tc.Name,
		DeviceID:   e.Device.ID(),
		UpdateMode: e.UpdateMode,
		StartedAt:  e.now(),
		Success:    true,
	}
	if e.Driver != nil && e.Driver.Store != nil {
		res.RunID = e.Driver.Store.RunID
	}
	if res.Name == "" {
		res.Name = tc.ID
	}

	if e.Recorder != nil {
		if err := e.Recorder.BeginRun(res); err != nil {
			e.warnf("failed to record run start: %v", err)
		}
	}

	var failure *StepError
	for i, step := range tc.Steps {
		sw := timing.Start()

		var cp *results.CheckpointResult
		err := ctx.Err()
		if err == nil {
			cp, err = e.execute(ctx, tc, step)
		}

		sr := results.StepResult{
			Index:      i,
			Type:       string(step.Type),
			Name:       step.Name,
			DurationMs: sw.ElapsedMs(),
			Checkpoint: cp,
		}
		if err != nil {
			failure = &StepError{Index: i, Type: step.Type, Err: err}
			sr.Error = err.Error()
		} else {
			sr.Success = cp == nil || cp.Match || e.UpdateMode
		}

		res.AddStep(sr)
		if e.Recorder != nil {
			if rerr := e.Recorder.RecordStep(res, sr); rerr != nil {
				e.warnf("failed to record step %d: %v", i+1, rerr)
			}
		}
		if e.OnStep != nil {
			e.OnStep(sr)
		}

		if failure != nil {
			break
		}
	}

	res.Finish(e.now())
	if e.Recorder != nil {
		if err := e.Recorder.FinishRun(res); err != nil {
			e.warnf("failed to record run completion: %v", err)
		}
	}

	if failure != nil {
		return res, failure
	}
	return res, nil
}

// execute dispatches one step. Only checkpoint-family steps return a result.
func (e *Engine) execute(ctx context.Context, tc TestCase, step Step) (*results.CheckpointResult, error) {
	if err := step.Validate(); err != nil {
		return nil, err
	}

	if kind, ok := step.Type.CheckpointKind(); ok {
		return e.checkpoint(ctx, tc, step, kind)
	}

	switch step.Type {
	case StepLaunchApp:
		bundle, err := bundleID(tc, step)
		if err != nil {
			return nil, err
		}
		return nil, e.Device.LaunchApp(ctx, bundle)

	case StepTerminateApp:
		bundle, err := bundleID(tc, step)
		if err != nil {
			return nil, err
		}
		return nil, e.Device.TerminateApp(ctx, bundle)

	case StepTap:
		return nil, e.tap(ctx, step)

	case StepSwipe:
		return nil, e.swipe(ctx, step)

	case StepTypeText:
		return nil, e.Device.TypeText(ctx, step.Text)

	case StepWait:
		return nil, e.sleep(ctx, seconds(step.Duration))

	case StepWaitForElement:
		_, err := e.waitForElement(ctx, step)
		return nil, err

	case StepScrollToElement:
		_, err := e.scrollToElement(ctx, step)
		return nil, err

	case StepOpenURL:
		return nil, e.Device.OpenURL(ctx, step.URL)

	case StepSetLocation:
		return nil, e.Device.SetLocation(ctx, step.Latitude, step.Longitude)

	case StepSimulateRoute:
		return e.simulateRoute(ctx, tc, step)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownStep, step.Type)
}

func bundleID(tc TestCase, step Step) (string, error) {
	if step.BundleID != "" {
		return step.BundleID, nil
	}
	if tc.BundleID != "" {
		return tc.BundleID, nil
	}
	return "", ErrNoBundleID
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// request builds the capture request for a checkpoint step. Step tolerance
// beats test case tolerance, which beats the engine default.
func (e *Engine) request(tc TestCase, step Step, name string) capture.Request {
	tolerance := e.Tolerance
	if tc.Tolerance != nil {
		tolerance = *tc.Tolerance
	}
	if step.Tolerance != nil {
		tolerance = *step.Tolerance
	}

	scrollToTop := true
	if step.ScrollToTop != nil {
		scrollToTop = *step.ScrollToTop
	}

	return capture.Request{
		TestCaseID:  tc.ID,
		Name:        name,
		Tolerance:   tolerance,
		Update:      e.UpdateMode,
		ScrollToTop: scrollToTop,
		Stitch:      step.Stitch,
	}
}

// checkpoint resolves a smart checkpoint to a concrete kind, then captures.
func (e *Engine) checkpoint(ctx context.Context, tc TestCase, step Step, kind CheckpointKind) (*results.CheckpointResult, error) {
	req := e.request(tc, step, step.Name)

	if kind == CheckpointSmart {
		resolved, err := e.resolveSmart(ctx, tc.ID)
		if err != nil {
			return nil, err
		}
		e.debugf("smart checkpoint %s resolved to %s", step.Name, resolved)
		kind = resolved
	}

	switch kind {
	case CheckpointFullPage:
		return e.Driver.FullPage(ctx, req)
	default:
		return e.Driver.Plain(ctx, req)
	}
}

func (e *Engine) resolveSmart(ctx context.Context, testCaseID string) (CheckpointKind, error) {
	region := e.Driver.Region(ctx)
	scrollable, err := e.Driver.DetectScrollability(ctx, testCaseID, region)
	if err != nil {
		return CheckpointPlain, err
	}
	if scrollable {
		return CheckpointFullPage, nil
	}
	return CheckpointPlain, nil
}

func (e *Engine) tap(ctx context.Context, step Step) error {
	if step.Element == nil {
		return e.Device.Tap(ctx, device.Point{X: step.X, Y: step.Y})
	}
	el, err := e.waitForElement(ctx, step)
	if err != nil {
		return err
	}
	return e.Device.Tap(ctx, el.Frame.Center())
}

func (e *Engine) swipe(ctx context.Context, step Step) error {
	duration := e.Driver.Config.SwipeDuration
	if step.Duration > 0 {
		duration = seconds(step.Duration)
	}

	if step.From != nil && step.To != nil {
		return e.Device.Swipe(ctx, *step.From, *step.To, duration)
	}

	dir := capture.Down
	if strings.EqualFold(step.Direction, "up") {
		dir = capture.Up
	}
	_, err := e.Driver.Scroll(ctx, e.Driver.Region(ctx), dir, e.Driver.Config.ScrollDistance)
	return err
}

// pollCount converts a timeout into a number of UI queries.
func (e *Engine) pollCount(timeout time.Duration) int {
	interval := e.PollInterval
	if interval <= 0 {
		return 1
	}
	n := int(math.Ceil(float64(timeout) / float64(interval)))
	if n < 1 {
		n = 1
	}
	return n
}

// waitForElement polls the UI tree until the step's selector matches or the
// timeout's worth of polls is used up.
func (e *Engine) waitForElement(ctx context.Context, step Step) (device.Element, error) {
	timeout := e.ElementTimeout
	if step.Timeout > 0 {
		timeout = seconds(step.Timeout)
	}
	sel := *step.Element

	polls := e.pollCount(timeout)
	for attempt := 1; attempt <= polls; attempt++ {
		elements, err := e.Device.DescribeUI(ctx)
		if err != nil {
			return device.Element{}, fmt.Errorf("UI query failed: %w", err)
		}
		if el, ok := sel.Find(elements); ok {
			e.debugf("found %s after %d polls", sel, attempt)
			return el, nil
		}
		if attempt < polls {
			if err := e.sleep(ctx, e.PollInterval); err != nil {
				return device.Element{}, err
			}
		}
	}

	return device.Element{}, fmt.Errorf("%w: %s within %s", ErrElementNotFound, sel, timeout)
}

// scrollToElement scrolls the content until the selector matches an element
// whose center is on screen, or the scroll ceiling is reached.
func (e *Engine) scrollToElement(ctx context.Context, step Step) (device.Element, error) {
	maxScrolls := e.MaxElementScrolls
	if step.MaxScrolls > 0 {
		maxScrolls = step.MaxScrolls
	}
	dir := capture.Down
	if strings.EqualFold(step.Direction, "up") {
		dir = capture.Up
	}
	sel := *step.Element
	cfg := e.Driver.Config
	screen := device.Frame{Width: cfg.ScreenWidth, Height: cfg.ScreenHeight}

	for scrolls := 0; ; scrolls++ {
		elements, err := e.Device.DescribeUI(ctx)
		if err != nil {
			return device.Element{}, fmt.Errorf("UI query failed: %w", err)
		}
		if el, ok := sel.Find(elements); ok && screen.Contains(el.Frame.Center()) {
			e.debugf("found %s after %d scrolls", sel, scrolls)
			return el, nil
		}
		if scrolls == maxScrolls {
			break
		}

		region := capture.DetectRegion(elements, cfg)
		if _, err := e.Driver.Scroll(ctx, region, dir, cfg.ScrollDistance); err != nil {
			return device.Element{}, err
		}
	}

	return device.Element{}, fmt.Errorf("%w: %s after %d scrolls", ErrElementNotFound, sel, maxScrolls)
}

// simulateRoute moves the simulated location through each waypoint. With a
// name, a plain checkpoint "<name>_route_<i>" is taken at every waypoint and
// the step's result aggregates them.
func (e *Engine) simulateRoute(ctx context.Context, tc TestCase, step Step) (*results.CheckpointResult, error) {
	interval := e.Driver.Config.SettleDelay
	if step.Interval > 0 {
		interval = seconds(step.Interval)
	}

	var combined *results.CheckpointResult
	if step.Name != "" {
		combined = &results.CheckpointResult{Name: step.Name, Match: true, Updated: e.UpdateMode}
	}

	var sum float64
	for i, w := range step.Route {
		if err := e.Device.SetLocation(ctx, w.Latitude, w.Longitude); err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", i, err)
		}
		if err := e.sleep(ctx, interval); err != nil {
			return nil, err
		}
		if combined == nil {
			continue
		}

		name := fmt.Sprintf("%s_route_%d", step.Name, i)
		cp, err := e.Driver.Plain(ctx, e.request(tc, step, name))
		if err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", i, err)
		}
		combined.Route = append(combined.Route, results.RoutePointResult{
			Index:      i,
			Latitude:   w.Latitude,
			Longitude:  w.Longitude,
			Checkpoint: cp,
		})
		combined.Match = combined.Match && cp.Match
		combined.BaselineMissing = combined.BaselineMissing || cp.BaselineMissing
		sum += cp.DifferenceRatio
	}

	if combined != nil && len(combined.Route) > 0 {
		combined.DifferenceRatio = sum / float64(len(combined.Route))
		combined.DifferencePercent = combined.DifferenceRatio * 100
	}
	return combined, nil
}
