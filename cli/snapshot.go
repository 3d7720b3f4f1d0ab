package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/camclassify/camclassify/rimage"
)

// SnapshotAction is the corresponding action for 'snapshot'.
func SnapshotAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger("snapshot", c.App.ErrWriter, cfg.Debug)
	source, err := openSource(c.Context, cfg, logger)
	if err != nil {
		return errors.Wrap(err, "camera not found")
	}
	defer func() {
		err = multierr.Combine(err, source.Close(c.Context))
	}()

	frame, err := source.NextFrame(c.Context)
	if err != nil {
		return err
	}
	img, err := rimage.FrameToRGBA(frame)
	if err != nil {
		return err
	}
	output := c.Path(flagOutput)
	if err := rimage.WriteImageToFile(output, img); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Image captured and saved as %s (%dx%d)\n", output, frame.Width, frame.Height) //nolint:errcheck
	return nil
}
