package stitch

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSegment(t *testing.T, dir, name string, w, h int, c color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func readPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func rgb(c color.Color) [3]uint32 {
	r, g, b, _ := c.RGBA()
	return [3]uint32{r >> 8, g >> 8, b >> 8}
}

func TestStitchVertically_HeightsSum(t *testing.T) {
	dir := t.TempDir()
	red := color.NRGBA{255, 0, 0, 255}
	green := color.NRGBA{0, 255, 0, 255}
	blue := color.NRGBA{0, 0, 255, 255}

	segments := []string{
		writeSegment(t, dir, "segment_000.png", 30, 40, red),
		writeSegment(t, dir, "segment_001.png", 30, 25, green),
		writeSegment(t, dir, "segment_002.png", 30, 10, blue),
	}
	out := filepath.Join(dir, "out", "full.png")

	got, err := StitchVertically(segments, out)
	require.NoError(t, err)
	assert.Equal(t, out, got)

	img := readPNG(t, out)
	assert.Equal(t, 30, img.Bounds().Dx())
	assert.Equal(t, 75, img.Bounds().Dy())

	assert.Equal(t, [3]uint32{255, 0, 0}, rgb(img.At(0, 0)))
	assert.Equal(t, [3]uint32{255, 0, 0}, rgb(img.At(29, 39)))
	assert.Equal(t, [3]uint32{0, 255, 0}, rgb(img.At(0, 40)))
	assert.Equal(t, [3]uint32{0, 255, 0}, rgb(img.At(15, 64)))
	assert.Equal(t, [3]uint32{0, 0, 255}, rgb(img.At(0, 65)))
	assert.Equal(t, [3]uint32{0, 0, 255}, rgb(img.At(29, 74)))
}

func TestStitchVertically_SingleSegmentIsByteCopy(t *testing.T) {
	dir := t.TempDir()
	seg := writeSegment(t, dir, "only.png", 8, 8, color.NRGBA{1, 2, 3, 255})
	out := filepath.Join(dir, "full.png")

	_, err := StitchVertically([]string{seg}, out)
	require.NoError(t, err)

	want, err := os.ReadFile(seg)
	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStitchVertically_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := StitchVertically(nil, filepath.Join(dir, "x.png"))
	assert.ErrorIs(t, err, ErrNoSegments)

	good := writeSegment(t, dir, "a.png", 4, 4, color.NRGBA{0, 0, 0, 255})
	bad := filepath.Join(dir, "b.png")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0644))

	_, err = StitchVertically([]string{good, bad}, filepath.Join(dir, "x.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segment 1")
}

func TestStitch_TransparentOverWhite(t *testing.T) {
	transparent := image.NewNRGBA(image.Rect(0, 0, 5, 5))
	opaque := image.NewNRGBA(image.Rect(0, 0, 5, 5))
	for i := range opaque.Pix {
		opaque.Pix[i] = 255
	}
	opaque.SetNRGBA(2, 2, color.NRGBA{10, 20, 30, 255})

	canvas, err := Stitch([]image.Image{transparent, opaque})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 5, 10), canvas.Bounds())
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, canvas.NRGBAAt(1, 1))
	assert.Equal(t, color.NRGBA{10, 20, 30, 255}, canvas.NRGBAAt(2, 7))
}

func TestStitch_NarrowSegmentLeftAligned(t *testing.T) {
	wide := image.NewNRGBA(image.Rect(0, 0, 6, 2))
	narrow := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for i := range narrow.Pix {
		narrow.Pix[i] = 0
	}
	for i := 3; i < len(narrow.Pix); i += 4 {
		narrow.Pix[i] = 255
	}

	canvas, err := Stitch([]image.Image{wide, narrow})
	require.NoError(t, err)
	assert.Equal(t, 6, canvas.Bounds().Dx())
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, canvas.NRGBAAt(0, 3))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, canvas.NRGBAAt(5, 3))
}
