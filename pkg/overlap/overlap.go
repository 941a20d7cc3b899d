// Package overlap measures how far a scroll gesture actually moved the content
// by locating a strip of the previous capture inside the next one.
//
// The result is advisory: callers log it and never correct captures with it.
package overlap

import (
	"github.com/mslinn/simsnap/pkg/imagecmp"
)

// Options tunes the strip search. Zero geometry fields take their defaults;
// a zero ChannelTolerance means exact channel equality.
type Options struct {
	StripHeight      int     // rows in the reference strip
	SearchRange      int     // rows searched either side of the expected position
	BottomMargin     int     // distance of the strip from the bottom of the previous capture
	ChannelTolerance int     // max per-channel delta for two pixels to count as equal
	EarlyExit        float64 // stop searching once a row reaches this similarity
}

// DefaultOptions returns the options used by the capture driver.
func DefaultOptions() Options {
	return Options{
		StripHeight:      50,
		SearchRange:      100,
		BottomMargin:     150,
		ChannelTolerance: 10,
		EarlyExit:        0.98,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.StripHeight <= 0 {
		o.StripHeight = d.StripHeight
	}
	if o.SearchRange <= 0 {
		o.SearchRange = d.SearchRange
	}
	if o.BottomMargin <= 0 {
		o.BottomMargin = d.BottomMargin
	}
	if o.ChannelTolerance < 0 {
		o.ChannelTolerance = d.ChannelTolerance
	}
	if o.EarlyExit <= 0 || o.EarlyExit > 1 {
		o.EarlyExit = d.EarlyExit
	}
	return o
}

// Result describes where the strip was found.
//
// Offset is expected scroll minus actual scroll in pixels: positive means the
// gesture under-shot, negative means it over-shot.
type Result struct {
	Offset        int     `json:"offset"`
	Confidence    float64 `json:"confidence"`
	MatchPosition int     `json:"match_position"`
	ExpectedRow   int     `json:"expected_row"`
}

// ActualScroll returns the scroll distance implied by the match.
func (r Result) ActualScroll(expectedScroll int) int {
	return expectedScroll - r.Offset
}

// FindOverlap searches cur for the strip taken from prev, assuming the content
// moved up by expectedScroll pixels. Geometry that does not fit in either image
// yields a zero Result.
func FindOverlap(prev, cur *imagecmp.RasterImage, expectedScroll int, opts Options) Result {
	opts = opts.withDefaults()
	if prev == nil || cur == nil {
		return Result{}
	}

	width := prev.Width
	if cur.Width < width {
		width = cur.Width
	}
	if width <= 0 {
		return Result{}
	}

	stripTop := prev.Height - opts.BottomMargin - opts.StripHeight
	if stripTop < 0 {
		return Result{}
	}

	expectedRow := stripTop - expectedScroll
	maxRow := cur.Height - opts.StripHeight
	if expectedRow < 0 || expectedRow > maxRow {
		return Result{}
	}

	lo := expectedRow - opts.SearchRange
	if lo < 0 {
		lo = 0
	}
	hi := expectedRow + opts.SearchRange
	if hi > maxRow {
		hi = maxRow
	}

	// Rows are visited nearest first, so ties on uniform or repeating content
	// resolve to the smallest offset.
	best := Result{ExpectedRow: expectedRow, MatchPosition: expectedRow}
	for d := 0; d <= opts.SearchRange; d++ {
		if expectedRow-d < lo && expectedRow+d > hi {
			break
		}
		if d > 0 && best.Confidence >= opts.EarlyExit {
			break
		}
		for _, row := range candidateRows(expectedRow, d) {
			if row < lo || row > hi {
				continue
			}
			sim := stripSimilarity(prev, stripTop, cur, row, width, opts.StripHeight, opts.ChannelTolerance)
			if sim > best.Confidence {
				best.Confidence = sim
				best.MatchPosition = row
			}
		}
	}

	best.Offset = best.MatchPosition - expectedRow
	return best
}

// candidateRows returns the rows at distance d from center, above first.
func candidateRows(center, d int) []int {
	if d == 0 {
		return []int{center}
	}
	return []int{center - d, center + d}
}

// stripSimilarity returns the fraction of pixels in the height-row band starting
// at aTop in a that match the band starting at bTop in b.
func stripSimilarity(a *imagecmp.RasterImage, aTop int, b *imagecmp.RasterImage, bTop, width, height, tol int) float64 {
	total := width * height
	if total == 0 {
		return 0
	}

	matching := 0
	for y := 0; y < height; y++ {
		ai := (aTop + y) * a.Width
		bi := (bTop + y) * b.Width
		for x := 0; x < width; x++ {
			ar, ag, ab := a.RGB(ai + x)
			br, bg, bb := b.RGB(bi + x)
			if near(ar, br, tol) && near(ag, bg, tol) && near(ab, bb, tol) {
				matching++
			}
		}
	}
	return float64(matching) / float64(total)
}

func near(a, b uint8, tol int) bool {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return d <= tol
}
