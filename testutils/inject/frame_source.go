package inject

import (
	"context"

	"github.com/camclassify/camclassify/components/camera"
)

// FrameSource is an injected frame source.
type FrameSource struct {
	camera.FrameSource
	NextFrameFunc func(ctx context.Context) (*camera.Frame, error)
	CloseFunc     func(ctx context.Context) error
}

// NextFrame calls the injected NextFrame or the real version.
func (fs *FrameSource) NextFrame(ctx context.Context) (*camera.Frame, error) {
	if fs.NextFrameFunc == nil {
		return fs.FrameSource.NextFrame(ctx)
	}
	return fs.NextFrameFunc(ctx)
}

// Close calls the injected Close or the real version.
func (fs *FrameSource) Close(ctx context.Context) error {
	if fs.CloseFunc == nil {
		if fs.FrameSource == nil {
			return nil
		}
		return fs.FrameSource.Close(ctx)
	}
	return fs.CloseFunc(ctx)
}
