// Package camera defines the frames a classification loop consumes and the source interface
// that produces them.
package camera

import (
	"context"
	"image"
	"image/draw"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrDeviceOpen is returned when a capture device cannot be opened at all.
	ErrDeviceOpen = errors.New("could not open video capture device")
	// ErrCapture is returned when a single frame capture fails.
	ErrCapture = errors.New("failed to capture image")
)

// ChannelOrder is the byte order of the three colour channels in a packed pixel.
type ChannelOrder int

const (
	// BGR is the order most capture drivers deliver.
	BGR ChannelOrder = iota
	// RGB is the order classification models are trained on.
	RGB
)

func (o ChannelOrder) String() string {
	switch o {
	case BGR:
		return "BGR"
	case RGB:
		return "RGB"
	default:
		return "unknown"
	}
}

// Channels is the number of bytes per pixel in a Frame.
const Channels = 3

// Frame is a raw captured image: Width*Height pixels of three interleaved bytes in Order.
// A frame is never modified after capture.
type Frame struct {
	Pix       []byte
	Width     int
	Height    int
	Order     ChannelOrder
	Timestamp time.Time
}

// NewFrame allocates a zeroed frame.
func NewFrame(width, height int, order ChannelOrder, ts time.Time) *Frame {
	return &Frame{
		Pix:       make([]byte, width*height*Channels),
		Width:     width,
		Height:    height,
		Order:     order,
		Timestamp: ts,
	}
}

// Validate checks that the pixel buffer matches the declared dimensions.
func (f *Frame) Validate() error {
	if f == nil {
		return errors.New("nil frame")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Errorf("frame has empty dimensions %dx%d", f.Width, f.Height)
	}
	if want := f.Width * f.Height * Channels; len(f.Pix) != want {
		return errors.Errorf("frame buffer has %d bytes, want %d for %dx%d", len(f.Pix), want, f.Width, f.Height)
	}
	if f.Order != BGR && f.Order != RGB {
		return errors.Errorf("unsupported channel order %d", f.Order)
	}
	return nil
}

// Bounds returns the frame's rectangle.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// FrameFromImage packs any image into a new frame in the requested channel order.
func FrameFromImage(img image.Image, order ChannelOrder, ts time.Time) *Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	f := NewFrame(b.Dx(), b.Dy(), order, ts)
	for y := 0; y < f.Height; y++ {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+f.Width*4]
		dst := f.Pix[y*f.Width*Channels : (y+1)*f.Width*Channels]
		for x := 0; x < f.Width; x++ {
			r, g, bl := src[x*4], src[x*4+1], src[x*4+2]
			if order == BGR {
				r, bl = bl, r
			}
			dst[x*Channels] = r
			dst[x*Channels+1] = g
			dst[x*Channels+2] = bl
		}
	}
	return f
}

// FrameSource yields frames from a capture device. Implementations are not safe for
// concurrent use.
type FrameSource interface {
	// NextFrame makes a single capture attempt. Failures wrap ErrCapture.
	NextFrame(ctx context.Context) (*Frame, error)
	// Close releases the device.
	Close(ctx context.Context) error
}

// Config holds the capture hints for a device. Width, Height and FrameRate are best effort;
// read the actual size off each Frame.
type Config struct {
	DeviceIndex int     `json:"device_index"`
	Path        string  `json:"video_path,omitempty"`
	Width       int     `json:"width_px,omitempty"`
	Height      int     `json:"height_px,omitempty"`
	FrameRate   float32 `json:"frame_rate,omitempty"`
	Autofocus   bool    `json:"autofocus"`
	Format      string  `json:"format,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c Config) Validate() error {
	if c.DeviceIndex < 0 {
		return errors.Errorf("got illegal negative device index %d", c.DeviceIndex)
	}
	if c.Width < 0 || c.Height < 0 {
		return errors.Errorf(
			"got illegal negative dimensions for width_px and height_px (%d, %d) fields set for webcam camera",
			c.Width, c.Height)
	}
	if c.FrameRate < 0 {
		return errors.Errorf(
			"got illegal non-positive dimension for frame rate (%.2f) field set for webcam camera",
			c.FrameRate)
	}
	return nil
}
