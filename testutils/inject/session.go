package inject

import (
	"context"

	"gorgonia.org/tensor"

	"github.com/camclassify/camclassify/ml/inference"
)

// Session is an injected inference session.
type Session struct {
	inference.Session
	IOSpecFunc func() inference.ModelIOSpec
	WarmupFunc func(ctx context.Context) error
	InferFunc  func(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error)
	CloseFunc  func(ctx context.Context) error
}

// IOSpec calls the injected IOSpec or the real version.
func (s *Session) IOSpec() inference.ModelIOSpec {
	if s.IOSpecFunc == nil {
		return s.Session.IOSpec()
	}
	return s.IOSpecFunc()
}

// Warmup calls the injected Warmup or the real version.
func (s *Session) Warmup(ctx context.Context) error {
	if s.WarmupFunc == nil {
		return s.Session.Warmup(ctx)
	}
	return s.WarmupFunc(ctx)
}

// Infer calls the injected Infer or the real version.
func (s *Session) Infer(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
	if s.InferFunc == nil {
		return s.Session.Infer(ctx, input)
	}
	return s.InferFunc(ctx, input)
}

// Close calls the injected Close or the real version.
func (s *Session) Close(ctx context.Context) error {
	if s.CloseFunc == nil {
		if s.Session == nil {
			return nil
		}
		return s.Session.Close(ctx)
	}
	return s.CloseFunc(ctx)
}
