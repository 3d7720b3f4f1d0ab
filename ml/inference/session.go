package inference

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"gorgonia.org/tensor"

	"github.com/camclassify/camclassify/logging"
)

// engine is the part of an inference runtime a session drives. The engine owns every native
// resource behind it and frees them in release.
type engine interface {
	// inputSpec and outputSpec return the type name and dims of the first input and output.
	inputSpec() (string, []int)
	outputSpec() (string, []int)
	setInput(data interface{}) error
	invoke() error
	// output returns the engine owned output buffer, valid until the next invoke.
	output() (interface{}, error)
	release()
}

// releaser runs cleanups in reverse order of registration, once.
type releaser struct {
	fns []func()
}

func (r *releaser) push(fn func()) {
	r.fns = append(r.fns, fn)
}

func (r *releaser) release() {
	for i := len(r.fns) - 1; i >= 0; i-- {
		r.fns[i]()
	}
	r.fns = nil
}

// resolveThreads maps a thread hint of zero or less to one thread per CPU.
func resolveThreads(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

func loadError(err error, format string, args ...interface{}) error {
	wrapped := errors.Wrapf(ErrModelLoad, format, args...)
	if err == nil {
		return wrapped
	}
	return errors.Wrap(wrapped, err.Error())
}

// modelSession implements Session over an engine.
type modelSession struct {
	path   string
	eng    engine
	spec   ModelIOSpec
	logger logging.Logger
	closed bool
}

// newModelSession derives the IO spec of a loaded engine. On error the engine is released.
func newModelSession(path string, eng engine, logger logging.Logger) (*modelSession, error) {
	inType, inShape := eng.inputSpec()
	outType, outShape := eng.outputSpec()
	spec, err := NewModelIOSpec(inType, inShape, outType, outShape)
	if err != nil {
		eng.release()
		return nil, loadError(err, "model at %s is not an image classifier", path)
	}
	logger.Infow("model loaded",
		"path", path,
		"floating", spec.InputIsFloating(),
		"width", spec.InputWidth,
		"height", spec.InputHeight,
	)
	return &modelSession{path: path, eng: eng, spec: spec, logger: logger}, nil
}

// IOSpec implements Session.
func (s *modelSession) IOSpec() ModelIOSpec {
	return s.spec
}

// Warmup invokes the model once on whatever the freshly allocated input holds.
func (s *modelSession) Warmup(ctx context.Context) error {
	_, span := trace.StartSpan(ctx, "inference::Warmup")
	defer span.End()

	if s.closed {
		return errors.New("session is closed")
	}
	if err := s.eng.invoke(); err != nil {
		return errors.Wrap(err, "warm-up invoke failed")
	}
	return nil
}

// Infer implements Session. The returned tensor aliases the engine's output buffer.
func (s *modelSession) Infer(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
	_, span := trace.StartSpan(ctx, "inference::Infer")
	defer span.End()

	if s.closed {
		return nil, errors.New("session is closed")
	}
	if err := s.spec.CheckInput(input); err != nil {
		return nil, err
	}
	if err := s.eng.setInput(input.Data()); err != nil {
		return nil, errors.Wrap(err, "copying to input tensor failed")
	}
	if err := s.eng.invoke(); err != nil {
		return nil, errors.Wrap(err, "invoke failed")
	}
	backing, err := s.eng.output()
	if err != nil {
		return nil, err
	}
	return tensor.New(tensor.WithShape(s.spec.OutputShape...), tensor.WithBacking(backing)), nil
}

// Close implements Session.
func (s *modelSession) Close(ctx context.Context) error {
	if s.closed {
		return errors.Errorf("session for %s already closed", s.path)
	}
	s.closed = true
	s.eng.release()
	return nil
}
