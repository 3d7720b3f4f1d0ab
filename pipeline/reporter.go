package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/camclassify/camclassify/components/camera"
	"github.com/camclassify/camclassify/logging"
	"github.com/camclassify/camclassify/rimage"
	"github.com/camclassify/camclassify/vision/classification"
)

// Result is what one successfully processed tick emits, in frame order.
type Result struct {
	RunID           string
	Tick            uint64
	Frame           *camera.Frame
	Classifications classification.Classifications
	// Timing is nil when timing is disabled.
	Timing *StageTiming
}

// Top returns the best classification, or nil when every entry was filtered out.
func (r Result) Top() classification.Classification {
	if len(r.Classifications) == 0 {
		return nil
	}
	return r.Classifications[0]
}

// Reporter is the sink results are emitted to. Report errors are logged by the driver and
// never stop the loop.
type Reporter interface {
	Report(ctx context.Context, r Result) error
	OnCaptureFailure(ctx context.Context, tick uint64, err error)
}

// LogReporter writes one structured log line per result.
type LogReporter struct {
	Logger logging.Logger
}

// Report implements Reporter.
func (lr *LogReporter) Report(ctx context.Context, r Result) error {
	fields := []interface{}{"run_id", r.RunID, "tick", r.Tick}
	if top := r.Top(); top != nil {
		fields = append(fields, "label", top.Label(), "score", top.Score())
	}
	if r.Timing != nil {
		for _, s := range r.Timing.Stages {
			fields = append(fields, s.Stage+"_ms", float64(s.Duration.Microseconds())/1000)
		}
		fields = append(fields, "total_ms", float64(r.Timing.Total.Microseconds())/1000)
	}
	lr.Logger.Infow("classified frame", fields...)
	return nil
}

// OnCaptureFailure implements Reporter.
func (lr *LogReporter) OnCaptureFailure(ctx context.Context, tick uint64, err error) {
	lr.Logger.Warnw("capture failed, skipping tick", "tick", tick, "error", err)
}

// ConsoleReporter prints results the way an interactive user reads them: every label line
// as "score: label", then the total tick time.
type ConsoleReporter struct {
	mu  sync.Mutex
	Out io.Writer
	// Stages also prints the per-stage breakdown when timing is enabled.
	Stages bool
}

// Report implements Reporter.
func (cr *ConsoleReporter) Report(ctx context.Context, r Result) error {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	var err error
	for _, c := range r.Classifications {
		_, werr := fmt.Fprintf(cr.Out, "%08.6f: %s\n", c.Score(), c.Label())
		err = multierr.Append(err, werr)
	}
	if r.Timing != nil {
		if cr.Stages {
			for _, s := range r.Timing.Stages {
				_, werr := fmt.Fprintf(cr.Out, "%s time: %s\n", s.Stage, ms(s.Duration))
				err = multierr.Append(err, werr)
			}
		}
		_, werr := fmt.Fprintf(cr.Out, "Total time: %.1f ms\n\n", float64(r.Timing.Total.Microseconds())/1000)
		err = multierr.Append(err, werr)
	}
	return err
}

// OnCaptureFailure implements Reporter.
func (cr *ConsoleReporter) OnCaptureFailure(ctx context.Context, tick uint64, err error) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	fmt.Fprintf(cr.Out, "Error: Failed to capture image (tick %d).\n", tick) //nolint:errcheck
}

// AnnotatedFrameReporter draws the top labels onto each frame and writes it to Path,
// replacing the previous image.
type AnnotatedFrameReporter struct {
	Path string
	// MaxLabels caps how many labels are drawn; 0 draws only the top one.
	MaxLabels int
}

// Report implements Reporter.
func (ar *AnnotatedFrameReporter) Report(ctx context.Context, r Result) error {
	if r.Frame == nil {
		return errors.New("result has no frame to annotate")
	}
	img, err := rimage.FrameToRGBA(r.Frame)
	if err != nil {
		return err
	}
	n := ar.MaxLabels
	if n <= 0 {
		n = 1
	}
	labels := make([]rimage.Label, 0, n)
	for _, c := range r.Classifications.TopN(n) {
		labels = append(labels, rimage.Label{Text: c.Label(), Score: c.Score()})
	}
	return rimage.WriteImageToFile(ar.Path, rimage.Annotate(img, labels))
}

// OnCaptureFailure implements Reporter. The last good image is left in place.
func (ar *AnnotatedFrameReporter) OnCaptureFailure(ctx context.Context, tick uint64, err error) {}

// MultiReporter fans out to several reporters in order.
type MultiReporter []Reporter

// Report implements Reporter; every reporter runs and their errors are combined.
func (mr MultiReporter) Report(ctx context.Context, r Result) error {
	var err error
	for _, rep := range mr {
		err = multierr.Combine(err, rep.Report(ctx, r))
	}
	return err
}

// OnCaptureFailure implements Reporter.
func (mr MultiReporter) OnCaptureFailure(ctx context.Context, tick uint64, err error) {
	for _, rep := range mr {
		rep.OnCaptureFailure(ctx, tick, err)
	}
}
