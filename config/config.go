// Package config defines the run configuration of the classifier and reads it from disk.
package config

import (
	"github.com/pkg/errors"

	"github.com/camclassify/camclassify/components/camera"
	"github.com/camclassify/camclassify/ml/inference"
	"github.com/camclassify/camclassify/pipeline"
)

// Defaults for a stock quantized MobileNet on a 1080p webcam.
const (
	DefaultModelFile = "mobilenet_v1_1.0_224_quant.tflite"
	DefaultLabelFile = "labels.txt"
	DefaultInputMean = 127.5
	DefaultInputStd  = 127.5
	DefaultWidth     = 1920
	DefaultHeight    = 1080
	DefaultFrameRate = 30
)

// Config is everything a run needs.
type Config struct {
	ModelFile          string  `json:"model_file"`
	LabelFile          string  `json:"label_file"`
	InputMean          float64 `json:"input_mean"`
	InputStd           float64 `json:"input_std"`
	NumThreads         int     `json:"num_threads,omitempty"`
	ExtDelegate        string  `json:"ext_delegate,omitempty"`
	ExtDelegateOptions string  `json:"ext_delegate_options,omitempty"`

	Camera camera.Config `json:"camera"`
	// FakeCamera replaces the webcam with a synthetic gradient source.
	FakeCamera bool `json:"fake_camera,omitempty"`
	// ImageFile replaces the webcam with a still image, classified every tick.
	ImageFile string `json:"image,omitempty"`

	TopK                   int      `json:"top_k"`
	Timing                 bool     `json:"timing"`
	StageTiming            bool     `json:"stage_timing,omitempty"`
	MinScore               float64  `json:"min_score,omitempty"`
	LabelFilter            []string `json:"label_filter,omitempty"`
	DisplayPath            string   `json:"display_path,omitempty"`
	MaxTicks               uint64   `json:"max_ticks,omitempty"`
	MaxConsecutiveFailures int      `json:"max_consecutive_failures,omitempty"`

	Debug bool `json:"debug,omitempty"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		ModelFile: DefaultModelFile,
		LabelFile: DefaultLabelFile,
		InputMean: DefaultInputMean,
		InputStd:  DefaultInputStd,
		Camera: camera.Config{
			Width:     DefaultWidth,
			Height:    DefaultHeight,
			FrameRate: DefaultFrameRate,
		},
		TopK:   pipeline.DefaultTopK,
		Timing: true,
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	if c.ModelFile == "" {
		return errors.New("model_file is required")
	}
	if c.LabelFile == "" {
		return errors.New("label_file is required")
	}
	if c.NumThreads < 0 {
		return errors.Errorf("num_threads must not be negative, got %d", c.NumThreads)
	}
	if c.TopK <= 0 {
		return errors.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return errors.Errorf("min_score must be within [0, 1], got %v", c.MinScore)
	}
	if c.MaxConsecutiveFailures < 0 {
		return errors.Errorf("max_consecutive_failures must not be negative, got %d", c.MaxConsecutiveFailures)
	}
	if c.FakeCamera && c.ImageFile != "" {
		return errors.New("fake_camera and image are mutually exclusive")
	}
	if err := c.Camera.Validate(); err != nil {
		return errors.Wrap(err, "camera")
	}
	if _, err := c.DelegateSpec(); err != nil {
		return err
	}
	return nil
}

// DelegateSpec parses the external delegate settings. It returns nil when no delegate is set.
func (c *Config) DelegateSpec() (*inference.DelegateSpec, error) {
	return inference.ParseDelegateSpec(c.ExtDelegate, c.ExtDelegateOptions)
}

// PipelineConfig returns the loop tuning part of the config.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		TopK:                   c.TopK,
		InputMean:              c.InputMean,
		InputStd:               c.InputStd,
		Timing:                 c.Timing,
		MinScore:               c.MinScore,
		LabelFilter:            c.LabelFilter,
		MaxTicks:               c.MaxTicks,
		MaxConsecutiveFailures: c.MaxConsecutiveFailures,
	}
}
