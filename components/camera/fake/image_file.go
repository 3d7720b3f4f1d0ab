package fake

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/camclassify/camclassify/components/camera"
	"github.com/camclassify/camclassify/rimage"
)

// ImageFile is a frame source that returns the same decoded image file on every capture.
type ImageFile struct {
	path string
	img  image.Image

	mu     sync.Mutex
	closed bool
}

// NewImageFile decodes the image at path. A missing or undecodable file wraps
// camera.ErrDeviceOpen, matching how a real device that can't be opened fails.
func NewImageFile(path string) (*ImageFile, error) {
	img, err := rimage.ReadImageFromFile(path)
	if err != nil {
		return nil, errors.Wrap(camera.ErrDeviceOpen, err.Error())
	}
	return &ImageFile{path: path, img: img}, nil
}

// NextFrame implements camera.FrameSource.
func (f *ImageFile) NextFrame(ctx context.Context) (*camera.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, errors.Wrapf(camera.ErrCapture, "image source %q closed", f.path)
	}
	return camera.FrameFromImage(f.img, camera.BGR, time.Now()), nil
}

// Close implements camera.FrameSource.
func (f *ImageFile) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.Errorf("image source %q already closed", f.path)
	}
	f.closed = true
	return nil
}
