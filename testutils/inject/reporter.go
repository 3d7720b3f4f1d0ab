package inject

import (
	"context"

	"github.com/camclassify/camclassify/pipeline"
)

// Reporter is an injected pipeline reporter.
type Reporter struct {
	pipeline.Reporter
	ReportFunc           func(ctx context.Context, r pipeline.Result) error
	OnCaptureFailureFunc func(ctx context.Context, tick uint64, err error)
}

// Report calls the injected Report or the real version.
func (r *Reporter) Report(ctx context.Context, res pipeline.Result) error {
	if r.ReportFunc == nil {
		return r.Reporter.Report(ctx, res)
	}
	return r.ReportFunc(ctx, res)
}

// OnCaptureFailure calls the injected OnCaptureFailure or the real version.
func (r *Reporter) OnCaptureFailure(ctx context.Context, tick uint64, err error) {
	if r.OnCaptureFailureFunc == nil {
		if r.Reporter != nil {
			r.Reporter.OnCaptureFailure(ctx, tick, err)
		}
		return
	}
	r.OnCaptureFailureFunc(ctx, tick, err)
}
