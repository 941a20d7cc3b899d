// Package device defines the automation surface the capture engine drives and
// the UI element tree it reads back.
package device

import (
	"context"
	"time"
)

// Point is a location in logical screen points.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Device is a single simulator session. Calls are not safe for concurrent use:
// the device can only be in one UI state at a time.
type Device interface {
	ID() string
	Screenshot(ctx context.Context, path string) error
	Tap(ctx context.Context, p Point) error
	// Swipe drags from one point to another over duration. Slow drags
	// suppress scroll inertia.
	Swipe(ctx context.Context, from, to Point, duration time.Duration) error
	TypeText(ctx context.Context, text string) error
	DescribeUI(ctx context.Context) ([]Element, error)
	LaunchApp(ctx context.Context, bundleID string) error
	TerminateApp(ctx context.Context, bundleID string) error
	OpenURL(ctx context.Context, url string) error
	SetLocation(ctx context.Context, latitude, longitude float64) error
}
