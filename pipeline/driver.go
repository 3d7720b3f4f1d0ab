// Package pipeline runs the capture, preprocess, inference and ranking stages in a single
// synchronous loop and reports each result with its per-stage timing.
package pipeline

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/camclassify/camclassify/components/camera"
	"github.com/camclassify/camclassify/logging"
	"github.com/camclassify/camclassify/ml/inference"
	"github.com/camclassify/camclassify/rimage"
	"github.com/camclassify/camclassify/vision/classification"
)

// ErrTooManyCaptureFailures is returned when MaxConsecutiveFailures is set and exceeded.
var ErrTooManyCaptureFailures = errors.New("too many consecutive capture failures")

// DefaultTopK is how many labels are reported per frame.
const DefaultTopK = 5

// Config is the tuning of a Driver.
type Config struct {
	TopK      int
	InputMean float64
	InputStd  float64
	// Timing attaches a StageTiming to every result.
	Timing bool
	// MinScore drops reported classifications below this score.
	MinScore float64
	// LabelFilter, when not empty, only reports these labels.
	LabelFilter []string
	// MaxTicks stops the loop after this many ticks. 0 runs until stopped.
	MaxTicks uint64
	// MaxConsecutiveFailures aborts the loop once exceeded. 0 never aborts.
	MaxConsecutiveFailures int
}

// Validate checks a Config.
func (c Config) Validate() error {
	if c.TopK < 0 {
		return errors.Errorf("top_k must not be negative, got %d", c.TopK)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return errors.Errorf("min_score must be within [0, 1], got %v", c.MinScore)
	}
	if c.MaxConsecutiveFailures < 0 {
		return errors.Errorf("max_consecutive_failures must not be negative, got %d", c.MaxConsecutiveFailures)
	}
	return nil
}

// Dependencies are the collaborators a Driver owns. Clock and Logger are optional.
type Dependencies struct {
	Session  inference.Session
	Source   camera.FrameSource
	Labels   []string
	Reporter Reporter
	Clock    clock.Clock
	Logger   logging.Logger
}

// Driver is the control loop. It owns its Session and Source and releases both when Run
// returns. A Driver runs once.
type Driver struct {
	conf      Config
	session   inference.Session
	source    camera.FrameSource
	labels    []string
	reporter  Reporter
	clock     clock.Clock
	logger    logging.Logger
	runID     string
	ioSpec    inference.ModelIOSpec
	prep      rimage.PreprocessConfig
	postprocs classification.Postprocessor

	state    atomic.Int32
	stopping atomic.Bool
	runOnce  sync.Once

	ticks           atomic.Uint64
	processed       atomic.Uint64
	captureFailures atomic.Uint64
	skipped         atomic.Uint64
	latency         *latencyTracker
}

// New checks the configuration against the loaded model and builds an Idle driver.
func New(conf Config, deps Dependencies) (*Driver, error) {
	if deps.Session == nil {
		return nil, errors.New("pipeline needs a model session")
	}
	if deps.Source == nil {
		return nil, errors.New("pipeline needs a frame source")
	}
	if deps.Reporter == nil {
		return nil, errors.New("pipeline needs a reporter")
	}
	if len(deps.Labels) == 0 {
		return nil, errors.New("pipeline needs at least one label")
	}
	if conf.TopK == 0 {
		conf.TopK = DefaultTopK
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewLogger("pipeline")
	}

	spec := deps.Session.IOSpec()
	if spec.InputChannels != camera.Channels {
		return nil, errors.Wrapf(inference.ErrTensorMismatch,
			"model wants %d input channels, frames have %d", spec.InputChannels, camera.Channels)
	}
	if spec.InputIsFloating() && conf.InputStd == 0 {
		return nil, errors.New("input_std must not be zero for a floating model")
	}
	if spec.OutputSize > len(deps.Labels) {
		deps.Logger.Warnw("label file is shorter than the model output, some indices have no label",
			"labels", len(deps.Labels), "outputs", spec.OutputSize)
	}

	runID := uuid.NewString()
	return &Driver{
		conf:     conf,
		session:  deps.Session,
		source:   deps.Source,
		labels:   deps.Labels,
		reporter: deps.Reporter,
		clock:    deps.Clock,
		logger:   deps.Logger.WithFields("run_id", runID),
		runID:    runID,
		ioSpec:   spec,
		prep: rimage.PreprocessConfig{
			Width:    spec.InputWidth,
			Height:   spec.InputHeight,
			Floating: spec.InputIsFloating(),
			Mean:     conf.InputMean,
			Std:      conf.InputStd,
		},
		postprocs: classification.Chain(
			classification.NewScoreFilter(conf.MinScore),
			classification.NewLabelFilter(conf.LabelFilter),
		),
		latency: newLatencyTracker(),
	}, nil
}

// State returns the current lifecycle state.
func (d *Driver) State() State {
	return State(d.state.Load())
}

func (d *Driver) setState(s State) {
	d.logger.Debugw("pipeline state change", "from", d.State().String(), "to", s.String())
	d.state.Store(int32(s))
}

// RunID identifies this run in logs and results.
func (d *Driver) RunID() string {
	return d.runID
}

// Stop asks the loop to halt at the next tick boundary. It is safe to call from any
// goroutine, any number of times.
func (d *Driver) Stop() {
	d.stopping.Store(true)
}

// Stats returns a snapshot of the run's counters and latency summary.
func (d *Driver) Stats() Stats {
	return Stats{
		RunID:           d.runID,
		State:           d.State(),
		Ticks:           d.ticks.Load(),
		Processed:       d.processed.Load(),
		CaptureFailures: d.captureFailures.Load(),
		Skipped:         d.skipped.Load(),
		Latency:         d.latency.summary(),
	}
}

// Run warms the model up and then ticks until Stop is called, ctx is done, MaxTicks is
// reached or the consecutive failure limit is exceeded. The frame source and the session are
// closed before Run returns, whatever the exit path. A stop or cancellation returns nil.
func (d *Driver) Run(ctx context.Context) (err error) {
	ran := false
	d.runOnce.Do(func() { ran = true })
	if !ran {
		return errors.New("pipeline has already run")
	}
	defer func() {
		d.setState(Stopped)
		closeErr := multierr.Combine(
			errors.Wrap(d.source.Close(ctx), "closing frame source"),
			errors.Wrap(d.session.Close(ctx), "closing model session"),
		)
		err = multierr.Combine(err, closeErr)
		st := d.Stats()
		d.logger.Infow("pipeline stopped",
			"ticks", st.Ticks, "processed", st.Processed,
			"capture_failures", st.CaptureFailures, "skipped", st.Skipped)
	}()

	if err := d.session.Warmup(ctx); err != nil {
		return errors.Wrap(err, "model warm-up failed")
	}
	d.setState(WarmedUp)

	d.logger.Infow("pipeline running", "model", d.ioSpec.String(), "top_k", d.conf.TopK, "timing", d.conf.Timing)
	d.setState(Running)

	consecutiveFailures := 0
	for {
		if ctx.Err() != nil || d.stopping.Load() {
			return nil
		}
		captured := d.tick(ctx)
		if captured {
			consecutiveFailures = 0
		} else {
			consecutiveFailures++
			if d.conf.MaxConsecutiveFailures > 0 && consecutiveFailures > d.conf.MaxConsecutiveFailures {
				return errors.Wrapf(ErrTooManyCaptureFailures, "%d in a row", consecutiveFailures)
			}
		}
		if d.conf.MaxTicks > 0 && d.ticks.Load() >= d.conf.MaxTicks {
			return nil
		}
	}
}

// tick runs one pass through every stage. It reports whether a frame was captured.
func (d *Driver) tick(ctx context.Context) bool {
	n := d.ticks.Inc()
	sw := startStopwatch(d.clock)

	frame, err := d.source.NextFrame(ctx)
	if err != nil {
		d.captureFailures.Inc()
		d.logger.Debugw("capture failed", "tick", n, "error", err)
		d.reporter.OnCaptureFailure(ctx, n, err)
		return false
	}
	sw.lap(StageCapture)

	input, err := rimage.Preprocess(frame, d.prep)
	if err != nil {
		d.skip(n, StagePreprocess, err)
		return true
	}
	sw.lap(StagePreprocess)

	output, err := d.session.Infer(ctx, input)
	if err != nil {
		d.skip(n, StageInference, err)
		return true
	}
	sw.lap(StageInference)

	// output aliases the session buffer, it must be consumed before the next Infer.
	ranked, err := classification.Rank(output, d.labels, d.conf.TopK, d.ioSpec.OutputIsFloating())
	if err != nil {
		d.skip(n, StagePostprocess, err)
		return true
	}
	ranked = d.postprocs(ranked)
	sw.lap(StagePostprocess)

	res := Result{RunID: d.runID, Tick: n, Frame: frame, Classifications: ranked}
	timing := sw.timing()
	d.latency.add(timing)
	if d.conf.Timing {
		res.Timing = timing
	}
	d.processed.Inc()
	if err := d.reporter.Report(ctx, res); err != nil {
		d.logger.Warnw("reporting result failed", "tick", n, "error", err)
	}
	return true
}

func (d *Driver) skip(tick uint64, stage string, err error) {
	d.skipped.Inc()
	d.logger.Errorw("skipping tick", "tick", tick, "stage", stage, "error", err)
}
