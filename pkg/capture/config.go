package capture

import (
	"time"

	"github.com/mslinn/simsnap/pkg/device"
	"github.com/mslinn/simsnap/pkg/overlap"
)

// Config holds the geometry and timing of full-page capture.
// Distances are logical points; PixelScale converts them to screenshot pixels.
type Config struct {
	ScreenWidth  float64
	ScreenHeight float64
	PixelScale   float64

	// DefaultCenter anchors swipes when the UI tree yields no usable region.
	DefaultCenter device.Point

	ScrollDistance     float64
	TestScrollDistance float64
	SwipeDuration      time.Duration
	SettleDelay        time.Duration

	MaxScrolls     int
	MaxScrollToTop int

	Stitch       bool
	EdgeTap      bool
	OverlapCheck bool
	Overlap      overlap.Options
}

// DefaultConfig returns settings for a 390x844 point, 3x display.
func DefaultConfig() Config {
	return Config{
		ScreenWidth:        390,
		ScreenHeight:       844,
		PixelScale:         3,
		DefaultCenter:      device.Point{X: 195, Y: 422},
		ScrollDistance:     300,
		TestScrollDistance: 100,
		SwipeDuration:      1500 * time.Millisecond,
		SettleDelay:        800 * time.Millisecond,
		MaxScrolls:         20,
		MaxScrollToTop:     10,
		Stitch:             true,
		EdgeTap:            true,
		OverlapCheck:       true,
		Overlap:            overlap.DefaultOptions(),
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ScreenWidth <= 0 {
		c.ScreenWidth = d.ScreenWidth
	}
	if c.ScreenHeight <= 0 {
		c.ScreenHeight = d.ScreenHeight
	}
	if c.PixelScale <= 0 {
		c.PixelScale = d.PixelScale
	}
	if c.DefaultCenter == (device.Point{}) {
		c.DefaultCenter = device.Point{X: c.ScreenWidth / 2, Y: c.ScreenHeight / 2}
	}
	if c.ScrollDistance <= 0 {
		c.ScrollDistance = d.ScrollDistance
	}
	if c.TestScrollDistance <= 0 {
		c.TestScrollDistance = d.TestScrollDistance
	}
	if c.MaxScrolls <= 0 {
		c.MaxScrolls = d.MaxScrolls
	}
	if c.MaxScrollToTop <= 0 {
		c.MaxScrollToTop = d.MaxScrollToTop
	}
	return c
}
