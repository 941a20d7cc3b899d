// Package devicetest provides an in-memory Device for exercising capture and
// scenario logic without a simulator.
package devicetest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/mslinn/simsnap/pkg/device"
)

// Call is one recorded method invocation.
type Call struct {
	Method string
	Args   []any
}

// Fake renders screenshots either from a tall page seen through a viewport that
// moves with swipes, or from a fixed frame list (the last frame repeats).
type Fake struct {
	// Page is the full scrollable content; Viewport is the visible height in pixels.
	Page     *image.NRGBA
	Viewport int
	Scroll   int

	// PixelScale converts logical swipe distances to page pixels.
	PixelScale float64

	// Frames, when non-empty, replaces Page rendering.
	Frames []image.Image

	// UI is returned by DescribeUI. UISequence, when set, is consumed one entry
	// per call with the last entry repeating.
	UI         []device.Element
	UISequence [][]device.Element

	Calls []Call

	mu       sync.Mutex
	frame    int
	uiCall   int
	counts   map[string]int
	failures map[string]failure
}

type failure struct {
	onCall int // 0 means every call
	err    error
}

// NewFake returns a Fake showing a page of random coloured rows.
func NewFake(width, pageHeight, viewport int) *Fake {
	return &Fake{
		Page:       StripedPage(width, pageHeight, 1),
		Viewport:   viewport,
		PixelScale: 1,
	}
}

// NewFrameFake returns a Fake that replays frames in order.
func NewFrameFake(frames ...image.Image) *Fake {
	return &Fake{Frames: frames, PixelScale: 1}
}

// FailOn makes the n-th call (1-based) of method return err. n <= 0 fails every call.
func (f *Fake) FailOn(method string, n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures == nil {
		f.failures = map[string]failure{}
	}
	f.failures[method] = failure{onCall: n, err: err}
}

// Count returns how many times method was called.
func (f *Fake) Count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[method]
}

func (f *Fake) record(method string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	f.counts[method]++
	f.Calls = append(f.Calls, Call{Method: method, Args: args})

	if fl, ok := f.failures[method]; ok {
		if fl.onCall <= 0 || fl.onCall == f.counts[method] {
			return fl.err
		}
	}
	return nil
}

func (f *Fake) ID() string { return "fake" }

func (f *Fake) Screenshot(ctx context.Context, path string) error {
	if err := f.record("Screenshot", path); err != nil {
		return err
	}

	f.mu.Lock()
	img := f.currentImage()
	f.mu.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func (f *Fake) currentImage() image.Image {
	if len(f.Frames) > 0 {
		i := f.frame
		if i >= len(f.Frames) {
			i = len(f.Frames) - 1
		}
		f.frame++
		return f.Frames[i]
	}

	w := f.Page.Bounds().Dx()
	view := image.NewNRGBA(image.Rect(0, 0, w, f.Viewport))
	xdraw.Draw(view, view.Bounds(), f.Page, image.Pt(0, f.Scroll), xdraw.Src)
	return view
}

func (f *Fake) Tap(ctx context.Context, p device.Point) error {
	return f.record("Tap", p)
}

// Swipe moves the viewport by the vertical drag distance; dragging up reveals
// content further down. The offset is clamped to the page.
func (f *Fake) Swipe(ctx context.Context, from, to device.Point, duration time.Duration) error {
	if err := f.record("Swipe", from, to, duration); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Page == nil {
		return nil
	}

	f.Scroll += int((from.Y - to.Y) * f.PixelScale)
	maxScroll := f.Page.Bounds().Dy() - f.Viewport
	if maxScroll < 0 {
		maxScroll = 0
	}
	if f.Scroll < 0 {
		f.Scroll = 0
	}
	if f.Scroll > maxScroll {
		f.Scroll = maxScroll
	}
	return nil
}

func (f *Fake) TypeText(ctx context.Context, text string) error {
	return f.record("TypeText", text)
}

func (f *Fake) DescribeUI(ctx context.Context) ([]device.Element, error) {
	if err := f.record("DescribeUI"); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.UISequence) > 0 {
		i := f.uiCall
		if i >= len(f.UISequence) {
			i = len(f.UISequence) - 1
		}
		f.uiCall++
		return f.UISequence[i], nil
	}
	return f.UI, nil
}

func (f *Fake) LaunchApp(ctx context.Context, bundleID string) error {
	return f.record("LaunchApp", bundleID)
}

func (f *Fake) TerminateApp(ctx context.Context, bundleID string) error {
	return f.record("TerminateApp", bundleID)
}

func (f *Fake) OpenURL(ctx context.Context, url string) error {
	return f.record("OpenURL", url)
}

func (f *Fake) SetLocation(ctx context.Context, latitude, longitude float64) error {
	return f.record("SetLocation", latitude, longitude)
}

// StripedPage returns an opaque image whose rows each carry a random colour, so
// any two vertical offsets render differently.
func StripedPage(width, height int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		c := color.NRGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255}
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// Solid returns an opaque single-colour image.
func Solid(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// WritePNG encodes img to path, creating parent directories.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

var _ device.Device = (*Fake)(nil)
