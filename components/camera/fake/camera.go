// Package fake implements frame sources that need no capture hardware: a synthetic gradient
// camera and a camera that replays an image file.
package fake

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/camclassify/camclassify/components/camera"
)

const (
	initialWidth  = 1280
	initialHeight = 720
)

// Camera is a fake camera that always returns the same yellow to blue gradient. Every
// FailEvery-th capture attempt fails with camera.ErrCapture when FailEvery > 0.
type Camera struct {
	Width     int
	Height    int
	FailEvery int
	// Fill, when set, paints every pixel this colour instead of the gradient.
	Fill color.Color

	mu       sync.Mutex
	calls    int
	closed   bool
	cacheImg *image.RGBA
	now      func() time.Time
}

// NewCamera returns a fake camera of the given size. A non-positive side keeps the 16:9
// aspect ratio of the other; both non-positive falls back to 1280x720.
func NewCamera(width, height int) *Camera {
	width, height = fakeSize(width, height)
	return &Camera{Width: width, Height: height, now: time.Now}
}

func fakeSize(width, height int) (int, int) {
	switch {
	case width > 0 && height > 0:
		return width, height
	case width > 0:
		return width, int(float64(initialHeight) * float64(width) / float64(initialWidth))
	case height > 0:
		return int(float64(initialWidth) * float64(height) / float64(initialHeight)), height
	default:
		return initialWidth, initialHeight
	}
}

// Calls returns how many capture attempts have been made.
func (c *Camera) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *Camera) image() *image.RGBA {
	if c.cacheImg != nil {
		return c.cacheImg
	}
	img := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	width := float64(c.Width)
	height := float64(c.Height)
	totalDist := math.Sqrt(width*width + height*height)

	for x := 0; x < c.Width; x++ {
		for y := 0; y < c.Height; y++ {
			if c.Fill != nil {
				img.Set(x, y, c.Fill)
				continue
			}
			dist := math.Sqrt(float64(x*x+y*y)) / totalDist
			img.Set(x, y, color.RGBA{uint8(255 - (255 * dist)), uint8(255 - (255 * dist)), uint8(0 + (255 * dist)), 255})
		}
	}
	c.cacheImg = img
	return img
}

// NextFrame implements camera.FrameSource.
func (c *Camera) NextFrame(ctx context.Context) (*camera.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.Wrap(camera.ErrCapture, "fake camera closed")
	}
	c.calls++
	if c.FailEvery > 0 && c.calls%c.FailEvery == 0 {
		return nil, errors.Wrapf(camera.ErrCapture, "fake failure on call %d", c.calls)
	}
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = fakeSize(c.Width, c.Height)
	}
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	return camera.FrameFromImage(c.image(), camera.BGR, now()), nil
}

// Close implements camera.FrameSource.
func (c *Camera) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("fake camera already closed")
	}
	c.closed = true
	return nil
}
