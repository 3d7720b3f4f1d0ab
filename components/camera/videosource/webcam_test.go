package videosource

import (
	"testing"

	"go.viam.com/test"

	"github.com/camclassify/camclassify/components/camera"
	"github.com/camclassify/camclassify/logging"
)

func TestSelectDevice(t *testing.T) {
	labels := []string{"video0;/dev/video0", "video2;/dev/video2"}

	idx, err := selectDevice(labels, 0, "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, idx, test.ShouldEqual, 0)

	idx, err = selectDevice(labels, 1, "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, idx, test.ShouldEqual, 1)

	_, err = selectDevice(labels, 2, "")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = selectDevice(nil, 0, "")
	test.That(t, err, test.ShouldNotBeNil)

	idx, err = selectDevice(labels, 0, "video2")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, idx, test.ShouldEqual, 1)

	_, err = selectDevice(labels, 0, "video9")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMakeConstraints(t *testing.T) {
	logger := logging.NewTestLogger(t)
	conf := camera.Config{Width: 1920, Height: 1080, FrameRate: 30}
	c := makeConstraints(conf, "dev-id", logger)
	test.That(t, c.Video, test.ShouldNotBeNil)
	test.That(t, c.Audio, test.ShouldBeNil)
}
