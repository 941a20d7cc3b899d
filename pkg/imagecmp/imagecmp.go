// Package imagecmp performs the pixel-exact comparison between a captured
// screenshot and its accepted baseline.
//
// A pixel differs when any of its red, green or blue samples differs at all;
// alpha is ignored. Tolerance is applied only to the aggregate ratio of
// differing pixels, never per pixel.
package imagecmp

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/mslinn/simsnap/pkg/filelock"
)

// ErrDecode is wrapped by every failure to read or decode an image file.
var ErrDecode = errors.New("image decode failed")

// RasterImage is a decoded image: dimensions, channel count and raw samples,
// row-major with Channels bytes per pixel and no padding.
type RasterImage struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

// SameSize reports whether two images have identical width and height.
func (r *RasterImage) SameSize(o *RasterImage) bool {
	return r.Width == o.Width && r.Height == o.Height
}

// RGB returns the colour samples of pixel i (row-major index).
// Grey images replicate their single sample into all three channels.
func (r *RasterImage) RGB(i int) (uint8, uint8, uint8) {
	off := i * r.Channels
	switch r.Channels {
	case 1, 2:
		v := r.Pix[off]
		return v, v, v
	default:
		return r.Pix[off], r.Pix[off+1], r.Pix[off+2]
	}
}

// FromImage converts any image.Image into a 4-channel non-premultiplied RasterImage.
func FromImage(img image.Image) *RasterImage {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		xdraw.Draw(nrgba, nrgba.Bounds(), img, b.Min, xdraw.Src)
	}
	return &RasterImage{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: 4,
		Pix:      nrgba.Pix,
	}
}

// ToImage returns the raster as an *image.NRGBA. The pixel buffer is copied.
func (r *RasterImage) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	n := r.Width * r.Height
	for i := 0; i < n; i++ {
		red, green, blue := r.RGB(i)
		alpha := uint8(255)
		if r.Channels == 4 {
			alpha = r.Pix[i*4+3]
		} else if r.Channels == 2 {
			alpha = r.Pix[i*2+1]
		}
		img.Pix[i*4+0] = red
		img.Pix[i*4+1] = green
		img.Pix[i*4+2] = blue
		img.Pix[i*4+3] = alpha
	}
	return img
}

// Load decodes the PNG at path.
func Load(path string) (*RasterImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return FromImage(img), nil
}

// Encode returns the PNG encoding of the raster.
func (r *RasterImage) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, r.ToImage()); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the raster as a PNG, replacing path atomically.
func (r *RasterImage) Save(path string) error {
	data, err := r.Encode()
	if err != nil {
		return err
	}
	return filelock.AtomicWrite(path, data)
}

// Options controls a comparison.
type Options struct {
	Tolerance    float64 // fraction of differing pixels in [0,1] still considered a match
	GenerateDiff bool
	DiffPath     string // defaults to "<actual>_diff.png" when empty
}

// Result is the outcome of a comparison.
type Result struct {
	Match           bool    `json:"match"`
	DifferenceRatio float64 `json:"difference_ratio"`
	DifferentPixels int     `json:"different_pixels"`
	TotalPixels     int     `json:"total_pixels"`
	DiffPath        string  `json:"diff_path,omitempty"`
	BaselineMissing bool    `json:"baseline_missing,omitempty"`
	SizeMismatch    bool    `json:"size_mismatch,omitempty"`
}

// DifferencePercent returns the ratio scaled to 0..100.
func (r *Result) DifferencePercent() float64 {
	return r.DifferenceRatio * 100
}

// Compare compares the PNG at actualPath with the PNG at baselinePath.
//
// A missing baseline is not an error: the result is a guaranteed mismatch with
// ratio 1 so a first run fails until the capture is accepted. Decode failures
// of either file are returned wrapped in ErrDecode.
func Compare(actualPath, baselinePath string, opts Options) (*Result, error) {
	if _, err := os.Stat(baselinePath); os.IsNotExist(err) {
		return &Result{
			Match:           false,
			DifferenceRatio: 1,
			BaselineMissing: true,
		}, nil
	}

	actual, err := Load(actualPath)
	if err != nil {
		return nil, err
	}
	baseline, err := Load(baselinePath)
	if err != nil {
		return nil, err
	}

	if opts.GenerateDiff && opts.DiffPath == "" {
		opts.DiffPath = DefaultDiffPath(actualPath)
	}
	return CompareImages(actual, baseline, opts)
}

// CompareImages compares two decoded rasters. When opts.GenerateDiff is set and
// at least one pixel differs, a diff visualisation is written to opts.DiffPath.
func CompareImages(actual, baseline *RasterImage, opts Options) (*Result, error) {
	total := actual.Width * actual.Height

	if !actual.SameSize(baseline) {
		return &Result{
			Match:           false,
			DifferenceRatio: 1,
			DifferentPixels: total,
			TotalPixels:     total,
			SizeMismatch:    true,
		}, nil
	}

	var mask []bool
	if opts.GenerateDiff {
		mask = make([]bool, total)
	}

	different := 0
	for i := 0; i < total; i++ {
		ar, ag, ab := actual.RGB(i)
		br, bg, bb := baseline.RGB(i)
		if ar != br || ag != bg || ab != bb {
			different++
			if mask != nil {
				mask[i] = true
			}
		}
	}

	ratio := 0.0
	if total > 0 {
		ratio = float64(different) / float64(total)
	}

	result := &Result{
		Match:           ratio <= opts.Tolerance,
		DifferenceRatio: ratio,
		DifferentPixels: different,
		TotalPixels:     total,
	}

	if opts.GenerateDiff && different > 0 && opts.DiffPath != "" {
		diff := RenderDiff(actual, mask)
		if err := diff.Save(opts.DiffPath); err != nil {
			return nil, fmt.Errorf("failed to write diff image: %w", err)
		}
		result.DiffPath = opts.DiffPath
	}

	return result, nil
}

// DefaultDiffPath derives "<dir>/<stem>_diff.png" from an actual image path.
func DefaultDiffPath(actualPath string) string {
	ext := filepath.Ext(actualPath)
	return strings.TrimSuffix(actualPath, ext) + "_diff.png"
}
