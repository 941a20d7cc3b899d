package imagecmp

import "math"

// Marker colour for differing pixels.
const (
	markerR = 255
	markerG = 0
	markerB = 255
)

// dimFactor scales the grey luminance of matching pixels.
const dimFactor = 0.3

// Luma returns the ITU-R BT.601 luminance of an RGB triple.
func Luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// RenderDiff builds an opaque RGBA image the size of src: pixels flagged in
// mask are painted magenta, the rest are src's luminance dimmed to dark grey.
func RenderDiff(src *RasterImage, mask []bool) *RasterImage {
	n := src.Width * src.Height
	out := &RasterImage{
		Width:    src.Width,
		Height:   src.Height,
		Channels: 4,
		Pix:      make([]byte, n*4),
	}

	for i := 0; i < n; i++ {
		o := i * 4
		if mask[i] {
			out.Pix[o+0] = markerR
			out.Pix[o+1] = markerG
			out.Pix[o+2] = markerB
		} else {
			r, g, b := src.RGB(i)
			v := uint8(math.Round(Luma(r, g, b) * dimFactor))
			out.Pix[o+0] = v
			out.Pix[o+1] = v
			out.Pix[o+2] = v
		}
		out.Pix[o+3] = 255
	}

	return out
}
