// Package stitch composes ordered screenshot segments into one tall image.
package stitch

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/mslinn/simsnap/pkg/filelock"
)

// ErrNoSegments is returned when there is nothing to stitch.
var ErrNoSegments = errors.New("no segments to stitch")

// Stitch paints images top to bottom, left-aligned, onto an opaque white
// canvas as wide as the first image and as tall as all images combined.
// Segments are never scaled or cropped; callers guarantee equal widths.
func Stitch(images []image.Image) (*image.NRGBA, error) {
	if len(images) == 0 {
		return nil, ErrNoSegments
	}

	width := images[0].Bounds().Dx()
	height := 0
	for _, img := range images {
		height += img.Bounds().Dy()
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, xdraw.Src)

	y := 0
	for _, img := range images {
		b := img.Bounds()
		dst := image.Rect(0, y, b.Dx(), y+b.Dy())
		xdraw.Draw(canvas, dst, img, b.Min, xdraw.Over)
		y += b.Dy()
	}

	return canvas, nil
}

// StitchVertically stitches the PNG files in segmentPaths into outputPath and
// returns outputPath. A single segment is copied byte for byte.
func StitchVertically(segmentPaths []string, outputPath string) (string, error) {
	if len(segmentPaths) == 0 {
		return "", ErrNoSegments
	}

	if len(segmentPaths) == 1 {
		data, err := os.ReadFile(segmentPaths[0])
		if err != nil {
			return "", fmt.Errorf("failed to read segment: %w", err)
		}
		if err := filelock.AtomicWrite(outputPath, data); err != nil {
			return "", err
		}
		return outputPath, nil
	}

	images := make([]image.Image, 0, len(segmentPaths))
	for i, p := range segmentPaths {
		img, err := decode(p)
		if err != nil {
			return "", fmt.Errorf("segment %d: %w", i, err)
		}
		images = append(images, img)
	}

	canvas, err := Stitch(images)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return "", fmt.Errorf("failed to encode stitched image: %w", err)
	}
	if err := filelock.AtomicWrite(outputPath, buf.Bytes()); err != nil {
		return "", err
	}

	return outputPath, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}
