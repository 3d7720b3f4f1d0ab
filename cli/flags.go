package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/camclassify/camclassify/config"
)

// loadConfig reads the --config file, or the defaults, and applies every flag the user
// set explicitly on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.Path(flagConfig); path != "" {
		fromFile, err := config.Read(path)
		if err != nil {
			return nil, err
		}
		cfg = *fromFile
	}

	setString := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	setInt := func(name string, dst *int) {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}
	setFloat := func(name string, dst *float64) {
		if c.IsSet(name) {
			*dst = c.Float64(name)
		}
	}
	setBool := func(name string, dst *bool) {
		if c.IsSet(name) {
			*dst = c.Bool(name)
		}
	}

	setString(flagModelFile, &cfg.ModelFile)
	setString(flagLabelFile, &cfg.LabelFile)
	setFloat(flagInputMean, &cfg.InputMean)
	setFloat(flagInputStd, &cfg.InputStd)
	setInt(flagNumThreads, &cfg.NumThreads)
	setString(flagExtDelegate, &cfg.ExtDelegate)
	setString(flagExtDelegateOptions, &cfg.ExtDelegateOptions)

	setInt(flagDevice, &cfg.Camera.DeviceIndex)
	setString(flagVideoPath, &cfg.Camera.Path)
	setInt(flagWidth, &cfg.Camera.Width)
	setInt(flagHeight, &cfg.Camera.Height)
	if c.IsSet(flagFPS) {
		cfg.Camera.FrameRate = float32(c.Float64(flagFPS))
	}
	setBool(flagAutofocus, &cfg.Camera.Autofocus)
	setBool(flagFakeCamera, &cfg.FakeCamera)
	if c.IsSet(flagImage) {
		cfg.ImageFile = c.Path(flagImage)
	}

	setInt(flagTopK, &cfg.TopK)
	setBool(flagTiming, &cfg.Timing)
	setBool(flagStageTiming, &cfg.StageTiming)
	setFloat(flagMinScore, &cfg.MinScore)
	if c.IsSet(flagLabels) {
		cfg.LabelFilter = c.StringSlice(flagLabels)
	}
	if c.IsSet(flagDisplayPath) {
		cfg.DisplayPath = c.Path(flagDisplayPath)
	}
	if c.IsSet(flagMaxTicks) {
		cfg.MaxTicks = c.Uint64(flagMaxTicks)
	}
	setInt(flagMaxFailures, &cfg.MaxConsecutiveFailures)
	setBool(flagDebug, &cfg.Debug)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
