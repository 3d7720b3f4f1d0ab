// Package cli contains the camclassify command line application.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"github.com/camclassify/camclassify/config"
)

// Flag names. The model flags keep their underscore spelling so existing invocations work.
const (
	flagConfig             = "config"
	flagDebug              = "debug"
	flagModelFile          = "model_file"
	flagLabelFile          = "label_file"
	flagInputMean          = "input_mean"
	flagInputStd           = "input_std"
	flagNumThreads         = "num_threads"
	flagExtDelegate        = "ext_delegate"
	flagExtDelegateOptions = "ext_delegate_options"
	flagDevice             = "device"
	flagVideoPath          = "video_path"
	flagWidth              = "width"
	flagHeight             = "height"
	flagFPS                = "fps"
	flagAutofocus          = "autofocus"
	flagFakeCamera         = "fake-camera"
	flagImage              = "image"
	flagTopK               = "top_k"
	flagTiming             = "timing"
	flagStageTiming        = "stage_timing"
	flagMinScore           = "min_score"
	flagLabels             = "labels"
	flagDisplayPath        = "display_path"
	flagMaxTicks           = "max_ticks"
	flagMaxFailures        = "max_consecutive_failures"
	flagOutput             = "output"
)

func modelFlags(def config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagModelFile,
			Aliases: []string{"m"},
			Value:   def.ModelFile,
			Usage:   ".tflite model to be executed",
		},
		&cli.IntFlag{
			Name:  flagNumThreads,
			Value: def.NumThreads,
			Usage: "number of inference threads, 0 for one per CPU",
		},
		&cli.StringFlag{
			Name:    flagExtDelegate,
			Aliases: []string{"e"},
			Usage:   "external delegate library `PATH`",
		},
		&cli.StringFlag{
			Name:    flagExtDelegateOptions,
			Aliases: []string{"o"},
			Usage:   `external delegate options, format: "option1: value1; option2: value2"`,
		},
	}
}

func cameraFlags(def config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  flagDevice,
			Value: def.Camera.DeviceIndex,
			Usage: "video capture device index",
		},
		&cli.StringFlag{
			Name:  flagVideoPath,
			Usage: "video capture device path, overrides --device",
		},
		&cli.IntFlag{
			Name:  flagWidth,
			Value: def.Camera.Width,
			Usage: "requested capture width",
		},
		&cli.IntFlag{
			Name:  flagHeight,
			Value: def.Camera.Height,
			Usage: "requested capture height",
		},
		&cli.Float64Flag{
			Name:  flagFPS,
			Value: float64(def.Camera.FrameRate),
			Usage: "requested capture frame rate",
		},
		&cli.BoolFlag{
			Name:  flagAutofocus,
			Value: def.Camera.Autofocus,
			Usage: "request autofocus",
		},
		&cli.BoolFlag{
			Name:  flagFakeCamera,
			Usage: "use a synthetic camera instead of a device",
		},
		&cli.PathFlag{
			Name:    flagImage,
			Aliases: []string{"i"},
			Usage:   "classify a still image `FILE` instead of a device",
		},
	}
}

func runFlags(def config.Config) []cli.Flag {
	flags := modelFlags(def)
	flags = append(flags,
		&cli.StringFlag{
			Name:    flagLabelFile,
			Aliases: []string{"l"},
			Value:   def.LabelFile,
			Usage:   "name of file containing labels",
		},
		&cli.Float64Flag{
			Name:  flagInputMean,
			Value: def.InputMean,
			Usage: "input mean, floating models only",
		},
		&cli.Float64Flag{
			Name:  flagInputStd,
			Value: def.InputStd,
			Usage: "input standard deviation, floating models only",
		},
	)
	flags = append(flags, cameraFlags(def)...)
	return append(flags,
		&cli.IntFlag{
			Name:  flagTopK,
			Value: def.TopK,
			Usage: "number of labels reported per frame",
		},
		&cli.BoolFlag{
			Name:  flagTiming,
			Value: def.Timing,
			Usage: "report per frame timing",
		},
		&cli.BoolFlag{
			Name:  flagStageTiming,
			Usage: "also print the time of every stage",
		},
		&cli.Float64Flag{
			Name:  flagMinScore,
			Value: def.MinScore,
			Usage: "drop labels scoring below this",
		},
		&cli.StringSliceFlag{
			Name:  flagLabels,
			Usage: "only report these labels",
		},
		&cli.PathFlag{
			Name:  flagDisplayPath,
			Usage: "write the latest annotated frame to `FILE`",
		},
		&cli.Uint64Flag{
			Name:  flagMaxTicks,
			Usage: "stop after this many frames, 0 runs until quit",
		},
		&cli.IntFlag{
			Name:  flagMaxFailures,
			Usage: "give up after this many capture failures in a row, 0 never gives up",
		},
	)
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	def := config.Default()
	return &cli.App{
		Name:            "camclassify",
		Usage:           "classify camera frames with a TensorFlow Lite model",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "classify frames continuously until q is pressed",
				Flags:  runFlags(def),
				Action: RunAction,
			},
			{
				Name:  "snapshot",
				Usage: "capture a single frame and save it",
				Flags: append(cameraFlags(def), &cli.PathFlag{
					Name:  flagOutput,
					Value: "image.jpg",
					Usage: "where to save the frame",
				}),
				Action: SnapshotAction,
			},
			{
				Name:   "probe",
				Usage:  "load a model and print its input and output tensors",
				Flags:  modelFlags(def),
				Action: ProbeAction,
			},
			{
				Name:   "devices",
				Usage:  "list video capture devices",
				Action: DevicesAction,
			},
		},
	}
}
