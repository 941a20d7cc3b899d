package capture

import (
	"strings"

	"github.com/mslinn/simsnap/pkg/device"
)

// Region is the scrollable area swipes are anchored in, in logical points.
type Region struct {
	X, Y, Width, Height float64
	Source              string // "element", "centroid" or "default"
}

// Center returns the swipe anchor.
func (r Region) Center() device.Point {
	return device.Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// containerTypes are element types that usually scroll.
var containerTypes = map[string]bool{
	"scrollview":     true,
	"table":          true,
	"collectionview": true,
	"webview":        true,
	"list":           true,
	"outline":        true,
	"textview":       true,
}

// wholeScreenTypes describe the app itself rather than content.
var wholeScreenTypes = map[string]bool{
	"application": true,
	"window":      true,
}

const (
	edgeBand       = 0.12 // top/bottom fraction of the screen where bars live
	thinStrip      = 0.15 // max height fraction of a bar
	largeContainer = 0.25 // min area fraction for a generic view to count as a container
)

// isBar reports whether f is a thin strip hugging the top or bottom of the
// screen, such as a navigation, tab or status bar.
func isBar(f device.Frame, screenH float64) bool {
	if f.Height >= thinStrip*screenH {
		return false
	}
	return f.Y < edgeBand*screenH || f.Bottom() > (1-edgeBand)*screenH
}

// DetectRegion picks the largest container-like element that is not a bar. It
// falls back to the area-weighted centroid of all elements, then to
// cfg.DefaultCenter.
func DetectRegion(elements []device.Element, cfg Config) Region {
	cfg = cfg.withDefaults()
	screenArea := cfg.ScreenWidth * cfg.ScreenHeight

	var best device.Frame
	var bestArea float64
	var sumX, sumY, sumArea float64

	for _, e := range device.Flatten(elements) {
		t := strings.ToLower(e.Type)
		area := e.Frame.Area()
		if area == 0 || wholeScreenTypes[t] || isBar(e.Frame, cfg.ScreenHeight) {
			continue
		}

		c := e.Frame.Center()
		sumX += c.X * area
		sumY += c.Y * area
		sumArea += area

		generic := t == "other" || t == "group"
		container := containerTypes[t] || (generic && area >= largeContainer*screenArea)
		if container && area > bestArea {
			best = e.Frame
			bestArea = area
		}
	}

	if bestArea > 0 {
		return Region{X: best.X, Y: best.Y, Width: best.Width, Height: best.Height, Source: "element"}
	}

	// centroid of whatever is on screen, with a region spanning the content band
	band := cfg.ScreenHeight * (1 - 2*edgeBand)
	if sumArea > 0 {
		cx, cy := sumX/sumArea, sumY/sumArea
		return Region{X: 0, Y: cy - band/2, Width: cfg.ScreenWidth, Height: band, Source: "centroid"}.centeredX(cx)
	}

	c := cfg.DefaultCenter
	return Region{X: 0, Y: c.Y - band/2, Width: cfg.ScreenWidth, Height: band, Source: "default"}.centeredX(c.X)
}

// centeredX shifts the region horizontally so its center lands on x.
func (r Region) centeredX(x float64) Region {
	r.X = x - r.Width/2
	return r
}
