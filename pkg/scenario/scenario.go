// Package scenario executes test cases: ordered, typed steps run one at a time
// against a device, with checkpoint steps routed into capture and compare.
package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mslinn/simsnap/pkg/device"
)

// StepType names an action.
type StepType string

const (
	StepLaunchApp          StepType = "launch_app"
	StepTerminateApp       StepType = "terminate_app"
	StepTap                StepType = "tap"
	StepSwipe              StepType = "swipe"
	StepTypeText           StepType = "type_text"
	StepWait               StepType = "wait"
	StepWaitForElement     StepType = "wait_for_element"
	StepScrollToElement    StepType = "scroll_to_element"
	StepCheckpoint         StepType = "checkpoint"
	StepFullPageCheckpoint StepType = "full_page_checkpoint"
	StepSmartCheckpoint    StepType = "smart_checkpoint"
	StepOpenURL            StepType = "open_url"
	StepSetLocation        StepType = "set_location"
	StepSimulateRoute      StepType = "simulate_route"
)

// StepTypes lists every supported step type in documentation order.
var StepTypes = []StepType{
	StepLaunchApp, StepTerminateApp, StepTap, StepSwipe, StepTypeText,
	StepWait, StepWaitForElement, StepScrollToElement,
	StepCheckpoint, StepFullPageCheckpoint, StepSmartCheckpoint,
	StepOpenURL, StepSetLocation, StepSimulateRoute,
}

// CheckpointKind is the closed set of checkpoint behaviours.
type CheckpointKind int

const (
	CheckpointPlain CheckpointKind = iota
	CheckpointFullPage
	// CheckpointSmart is resolved to Plain or FullPage by scrollability
	// detection before it is dispatched.
	CheckpointSmart
)

func (k CheckpointKind) String() string {
	switch k {
	case CheckpointFullPage:
		return "full_page"
	case CheckpointSmart:
		return "smart"
	default:
		return "plain"
	}
}

// CheckpointKind returns the checkpoint kind of t, if t is a checkpoint.
func (t StepType) CheckpointKind() (CheckpointKind, bool) {
	switch t {
	case StepCheckpoint:
		return CheckpointPlain, true
	case StepFullPageCheckpoint:
		return CheckpointFullPage, true
	case StepSmartCheckpoint:
		return CheckpointSmart, true
	default:
		return 0, false
	}
}

// Known reports whether t is a supported step type.
func (t StepType) Known() bool {
	for _, k := range StepTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Waypoint is one coordinate of a simulated route.
type Waypoint struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
}

// Step is one action. Which fields apply depends on Type.
type Step struct {
	Type StepType `yaml:"type" json:"type"`
	// Name is the checkpoint name, used verbatim as the artifact file stem.
	Name     string `yaml:"name,omitempty" json:"name,omitempty"`
	BundleID string `yaml:"bundle_id,omitempty" json:"bundle_id,omitempty"`

	// tap
	X       float64          `yaml:"x,omitempty" json:"x,omitempty"`
	Y       float64          `yaml:"y,omitempty" json:"y,omitempty"`
	Element *device.Selector `yaml:"element,omitempty" json:"element,omitempty"`

	// swipe: explicit points, or a direction ("up"/"down") through the scroll region
	From      *device.Point `yaml:"from,omitempty" json:"from,omitempty"`
	To        *device.Point `yaml:"to,omitempty" json:"to,omitempty"`
	Direction string        `yaml:"direction,omitempty" json:"direction,omitempty"`

	// Duration is in seconds: the wait length, or the swipe drag time.
	Duration float64 `yaml:"duration,omitempty" json:"duration,omitempty"`
	Text     string  `yaml:"text,omitempty" json:"text,omitempty"`
	URL      string  `yaml:"url,omitempty" json:"url,omitempty"`

	// wait_for_element / scroll_to_element
	Timeout    float64 `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	MaxScrolls int     `yaml:"max_scrolls,omitempty" json:"max_scrolls,omitempty"`

	// checkpoints
	Tolerance   *float64 `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
	ScrollToTop *bool    `yaml:"scroll_to_top,omitempty" json:"scroll_to_top,omitempty"`
	Stitch      *bool    `yaml:"stitch,omitempty" json:"stitch,omitempty"`

	// set_location / simulate_route
	Latitude  float64    `yaml:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude float64    `yaml:"longitude,omitempty" json:"longitude,omitempty"`
	Route     []Waypoint `yaml:"route,omitempty" json:"route,omitempty"`
	Interval  float64    `yaml:"interval,omitempty" json:"interval,omitempty"` // seconds per waypoint
}

// Label returns a short description for logs.
func (s Step) Label() string {
	switch {
	case s.Name != "":
		return fmt.Sprintf("%s %s", s.Type, s.Name)
	case s.Element != nil:
		return fmt.Sprintf("%s %s", s.Type, s.Element)
	default:
		return string(s.Type)
	}
}

// TestCase is an ordered list of steps sharing an artifact namespace.
type TestCase struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	BundleID    string   `yaml:"bundle_id,omitempty" json:"bundle_id,omitempty"`
	Tolerance   *float64 `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
	Steps       []Step   `yaml:"steps" json:"steps"`
}

var (
	ErrUnknownStep      = errors.New("unknown step type")
	ErrInvalidStep      = errors.New("invalid step")
	ErrElementNotFound  = errors.New("element not found")
	ErrNoBundleID       = errors.New("no bundle id")
	ErrInvalidTestCase  = errors.New("invalid test case")
	errMissingSelector  = fmt.Errorf("%w: element selector required", ErrInvalidStep)
	errMissingCheckName = fmt.Errorf("%w: checkpoint name required", ErrInvalidStep)
)

// StepError is the hard failure of one step. It ends the test case.
type StepError struct {
	Index int
	Type  StepType
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Type, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Validate checks that the fields a step type needs are present.
func (s Step) Validate() error {
	if !s.Type.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownStep, s.Type)
	}

	switch s.Type {
	case StepTap:
		if s.Element != nil && s.Element.IsEmpty() {
			return errMissingSelector
		}
	case StepSwipe:
		hasPoints := s.From != nil && s.To != nil
		dir := strings.ToLower(s.Direction)
		if !hasPoints && dir != "up" && dir != "down" {
			return fmt.Errorf("%w: swipe needs from/to or direction up|down", ErrInvalidStep)
		}
	case StepTypeText:
		if s.Text == "" {
			return fmt.Errorf("%w: text required", ErrInvalidStep)
		}
	case StepWait:
		if s.Duration < 0 {
			return fmt.Errorf("%w: negative duration", ErrInvalidStep)
		}
	case StepWaitForElement, StepScrollToElement:
		if s.Element == nil || s.Element.IsEmpty() {
			return errMissingSelector
		}
	case StepCheckpoint, StepFullPageCheckpoint, StepSmartCheckpoint:
		if s.Name == "" {
			return errMissingCheckName
		}
		if s.Tolerance != nil && (*s.Tolerance < 0 || *s.Tolerance > 1) {
			return fmt.Errorf("%w: tolerance must be within [0,1]", ErrInvalidStep)
		}
	case StepOpenURL:
		if s.URL == "" {
			return fmt.Errorf("%w: url required", ErrInvalidStep)
		}
	case StepSetLocation:
		if err := validCoordinate(s.Latitude, s.Longitude); err != nil {
			return err
		}
	case StepSimulateRoute:
		if len(s.Route) == 0 {
			return fmt.Errorf("%w: route needs at least one waypoint", ErrInvalidStep)
		}
		for _, w := range s.Route {
			if err := validCoordinate(w.Latitude, w.Longitude); err != nil {
				return err
			}
		}
	}
	return nil
}

func validCoordinate(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: coordinate %.6f,%.6f out of range", ErrInvalidStep, lat, lon)
	}
	return nil
}

// Validate checks the test case and every step.
func (tc TestCase) Validate() error {
	if tc.ID == "" {
		return fmt.Errorf("%w: id required", ErrInvalidTestCase)
	}
	if strings.ContainsAny(tc.ID, `/\`) {
		return fmt.Errorf("%w: id %q must not contain path separators", ErrInvalidTestCase, tc.ID)
	}
	for i, s := range tc.Steps {
		if err := s.Validate(); err != nil {
			return &StepError{Index: i, Type: s.Type, Err: err}
		}
	}
	return nil
}
