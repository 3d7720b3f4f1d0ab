// Package videosource implements a frame source over a local webcam.
package videosource

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pion/mediadevices"
	driverutils "github.com/pion/mediadevices/pkg/driver"
	mediadevicescamera "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/camclassify/camclassify/components/camera"
	"github.com/camclassify/camclassify/logging"
)

var errClosed = errors.New("camera has been closed")

// DeviceInfo describes one video capture driver.
type DeviceInfo struct {
	Index  int
	ID     string
	Label  string
	Status string
}

func videoDrivers() []driverutils.Driver {
	mediadevicescamera.Initialize()
	return driverutils.GetManager().Query(driverutils.FilterVideoRecorder())
}

// ListDevices returns the video capture drivers in the order Open indexes them.
func ListDevices() []DeviceInfo {
	drivers := videoDrivers()
	out := make([]DeviceInfo, 0, len(drivers))
	for i, d := range drivers {
		out = append(out, DeviceInfo{
			Index:  i,
			ID:     d.ID(),
			Label:  strings.Split(d.Info().Label, mediadevicescamera.LabelSeparator)[0],
			Status: string(d.Status()),
		})
	}
	return out
}

// selectDevice picks a driver by path when one is configured, otherwise by index.
func selectDevice(labels []string, index int, path string) (int, error) {
	if path != "" {
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			path = resolved
		}
		base := filepath.Base(path)
		for i, l := range labels {
			for _, part := range strings.Split(l, mediadevicescamera.LabelSeparator) {
				if part == path || part == base {
					return i, nil
				}
			}
		}
		return 0, errors.Errorf("no video device with path %q among %d devices", path, len(labels))
	}
	if index < 0 || index >= len(labels) {
		return 0, errors.Errorf("video device index %d out of range (%d devices found)", index, len(labels))
	}
	return index, nil
}

// makeConstraints returns the constraints handed to mediadevices. Size and rate are ideal
// values rather than exact ones so a device that can't honour them still opens.
func makeConstraints(conf camera.Config, deviceID string, logger logging.Logger) mediadevices.MediaStreamConstraints {
	return mediadevices.MediaStreamConstraints{
		Video: func(constraint *mediadevices.MediaTrackConstraints) {
			constraint.DeviceID = prop.StringExact(deviceID)
			if conf.Width > 0 {
				constraint.Width = prop.Int(conf.Width)
			} else {
				constraint.Width = prop.IntRanged{Min: 0, Ideal: 640, Max: 4096}
			}

			if conf.Height > 0 {
				constraint.Height = prop.Int(conf.Height)
			} else {
				constraint.Height = prop.IntRanged{Min: 0, Ideal: 480, Max: 2160}
			}

			if conf.FrameRate > 0.0 {
				constraint.FrameRate = prop.Float(conf.FrameRate)
			} else {
				constraint.FrameRate = prop.FloatRanged{Min: 0.0, Ideal: 30.0, Max: 140.0}
			}

			if conf.Format == "" {
				constraint.FrameFormat = prop.FrameFormatOneOf{
					frame.FormatI420,
					frame.FormatI444,
					frame.FormatYUY2,
					frame.FormatUYVY,
					frame.FormatRGBA,
					frame.FormatMJPEG,
					frame.FormatNV12,
					frame.FormatNV21,
				}
			} else {
				constraint.FrameFormat = prop.FrameFormatExact(conf.Format)
			}
			logger.Debugf("constraints: %v", constraint)
		},
	}
}

// Webcam is a camera.FrameSource backed by a mediadevices video track.
type Webcam struct {
	mu     sync.Mutex
	track  mediadevices.Track
	reader video.Reader
	label  string
	conf   camera.Config
	closed bool
	logger logging.Logger
}

// Open finds the configured device and starts streaming from it. Any failure wraps
// camera.ErrDeviceOpen.
func Open(ctx context.Context, conf camera.Config, logger logging.Logger) (*Webcam, error) {
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(camera.ErrDeviceOpen, err.Error())
	}

	drivers := videoDrivers()
	labels := make([]string, 0, len(drivers))
	for _, d := range drivers {
		labels = append(labels, d.Info().Label)
	}
	idx, err := selectDevice(labels, conf.DeviceIndex, conf.Path)
	if err != nil {
		return nil, errors.Wrap(camera.ErrDeviceOpen, err.Error())
	}
	driver := drivers[idx]

	stream, err := mediadevices.GetUserMedia(makeConstraints(conf, driver.ID(), logger))
	if err != nil {
		return nil, errors.Wrapf(camera.ErrDeviceOpen, "device %d: %v", idx, err)
	}
	tracks := stream.GetVideoTracks()
	if len(tracks) == 0 {
		return nil, errors.Wrapf(camera.ErrDeviceOpen, "device %d has no video track", idx)
	}
	videoTrack, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		return nil, multierr.Combine(
			errors.Wrapf(camera.ErrDeviceOpen, "device %d returned a %T, not a video track", idx, tracks[0]),
			tracks[0].Close())
	}

	label := strings.Split(driver.Info().Label, mediadevicescamera.LabelSeparator)[0]
	cam := &Webcam{
		track:  videoTrack,
		reader: videoTrack.NewReader(false),
		label:  label,
		conf:   conf,
		logger: logger.WithFields("camera_label", label),
	}
	if conf.Autofocus {
		cam.logger.Debug("autofocus requested; the driver layer exposes no focus control, leaving device default")
	} else {
		cam.logger.Debug("autofocus disabled by config; the driver layer exposes no focus control, leaving device default")
	}
	cam.logger.Infow("camera opened", "device", idx, "width", conf.Width, "height", conf.Height, "fps", conf.FrameRate)
	return cam, nil
}

// Label returns the device label, usually its /dev path.
func (c *Webcam) Label() string {
	return c.label
}

// NextFrame implements camera.FrameSource. The driver image is copied into a BGR frame
// before the driver buffer is released.
func (c *Webcam) NextFrame(ctx context.Context) (*camera.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.Wrap(camera.ErrCapture, errClosed.Error())
	}

	img, release, err := c.reader.Read()
	if release != nil {
		defer release()
	}
	if err != nil {
		return nil, errors.Wrap(camera.ErrCapture, err.Error())
	}
	f := camera.FrameFromImage(img, camera.BGR, time.Now())
	if c.conf.Width > 0 && c.conf.Height > 0 && (f.Width != c.conf.Width || f.Height != c.conf.Height) {
		c.logger.Debugw("device did not honour requested size",
			"requested", []int{c.conf.Width, c.conf.Height}, "actual", []int{f.Width, f.Height})
	}
	return f, nil
}

// Close implements camera.FrameSource.
func (c *Webcam) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("webcam already closed")
	}
	c.closed = true
	return c.track.Close()
}
