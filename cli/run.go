package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/term"

	"github.com/camclassify/camclassify/components/camera"
	"github.com/camclassify/camclassify/components/camera/fake"
	"github.com/camclassify/camclassify/components/camera/videosource"
	"github.com/camclassify/camclassify/config"
	"github.com/camclassify/camclassify/logging"
	"github.com/camclassify/camclassify/ml"
	"github.com/camclassify/camclassify/ml/inference"
	"github.com/camclassify/camclassify/pipeline"
)

// loadSession and openWebcam are swapped out in tests.
var (
	loadSession = inference.LoadTFLite
	openWebcam  = func(ctx context.Context, conf camera.Config, logger logging.Logger) (camera.FrameSource, error) {
		return videosource.Open(ctx, conf, logger)
	}
	stdin = os.Stdin
)

func newLogger(name string, out io.Writer, debug bool) logging.Logger {
	logger := logging.NewBlankLogger(name)
	logger.AddAppender(logging.NewWriterAppender(out))
	if !debug {
		logger.SetLevel(logging.INFO)
	}
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// openSource picks the frame source the config asks for.
func openSource(ctx context.Context, cfg *config.Config, logger logging.Logger) (camera.FrameSource, error) {
	switch {
	case cfg.ImageFile != "":
		return fake.NewImageFile(cfg.ImageFile)
	case cfg.FakeCamera:
		return fake.NewCamera(cfg.Camera.Width, cfg.Camera.Height), nil
	default:
		return openWebcam(ctx, cfg.Camera, logger)
	}
}

func buildReporter(cfg *config.Config, out io.Writer, logger logging.Logger) pipeline.Reporter {
	reporters := pipeline.MultiReporter{
		&pipeline.ConsoleReporter{Out: out, Stages: cfg.StageTiming},
	}
	if cfg.Debug {
		reporters = append(reporters, &pipeline.LogReporter{Logger: logger.Sublogger("results")})
	}
	if cfg.DisplayPath != "" {
		reporters = append(reporters, &pipeline.AnnotatedFrameReporter{Path: cfg.DisplayPath, MaxLabels: 1})
	}
	return reporters
}

// RunAction is the corresponding action for 'run'.
func RunAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runPipeline(ctx, cfg, c.App.Writer)
}

func runPipeline(ctx context.Context, cfg *config.Config, out io.Writer) (err error) {
	logger := newLogger("camclassify", out, cfg.Debug)
	delegate, err := cfg.DelegateSpec()
	if err != nil {
		return err
	}

	progress := newStartupProgress(out, isTerminal(out),
		&Step{ID: "labels", Message: "Loading labels"},
		&Step{ID: "model", Message: "Loading model"},
		&Step{ID: "camera", Message: "Opening camera"},
	)
	defer progress.Stop()

	if err := progress.Start("labels"); err != nil {
		return err
	}
	labels, err := ml.LoadLabels(cfg.LabelFile)
	if err != nil {
		return multierr.Combine(err, progress.Fail("labels", err))
	}
	if err := progress.Complete("labels", fmt.Sprintf("%d labels", len(labels))); err != nil {
		return err
	}

	if err := progress.Start("model"); err != nil {
		return err
	}
	session, err := loadSession(ctx, cfg.ModelFile, delegate, cfg.NumThreads, logger.Sublogger("inference"))
	if err != nil {
		return multierr.Combine(err, progress.Fail("model", err))
	}
	if err := progress.Complete("model", session.IOSpec().String()); err != nil {
		return multierr.Combine(err, session.Close(ctx))
	}
	spec := session.IOSpec()
	fmt.Fprintln(out, "Floating model:", spec.InputIsFloating())                               //nolint:errcheck
	fmt.Fprintf(out, "Model Width: %d, Image Height: %d\n", spec.InputWidth, spec.InputHeight) //nolint:errcheck

	if err := progress.Start("camera"); err != nil {
		return multierr.Combine(err, session.Close(ctx))
	}
	source, err := openSource(ctx, cfg, logger.Sublogger("camera"))
	if err != nil {
		return multierr.Combine(err, progress.Fail("camera", err), session.Close(ctx))
	}
	if err := progress.Complete("camera", ""); err != nil {
		return multierr.Combine(err, source.Close(ctx), session.Close(ctx))
	}

	// Quit on q. From here on the terminal may be raw, so output needs explicit \r\n.
	ctx, quit := context.WithCancel(ctx)
	defer quit()
	restore, raw := enableQuitKey(stdin, quit)
	defer restore()
	if raw {
		out = crlfWriter{w: out}
		logger = newLogger("camclassify", out, cfg.Debug)
	}

	driver, err := pipeline.New(cfg.PipelineConfig(), pipeline.Dependencies{
		Session:  session,
		Source:   source,
		Labels:   labels,
		Reporter: buildReporter(cfg, out, logger),
		Logger:   logger.Sublogger("pipeline"),
	})
	if err != nil {
		return multierr.Combine(err, source.Close(ctx), session.Close(ctx))
	}
	if err := driver.Run(ctx); err != nil {
		return errors.Wrap(err, "pipeline failed")
	}
	printStats(out, driver.Stats())
	return nil
}

func printStats(out io.Writer, st pipeline.Stats) {
	fmt.Fprintf(out, "%d frames classified, %d capture failures, %d skipped\n", //nolint:errcheck
		st.Processed, st.CaptureFailures, st.Skipped)
	if total, ok := st.Latency["total"]; ok {
		fmt.Fprintf(out, "latency mean %s p50 %s p95 %s\n", total.Mean, total.P50, total.P95) //nolint:errcheck
	}
}
