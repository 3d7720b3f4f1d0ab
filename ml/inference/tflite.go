//go:build !no_tflite && !no_cgo

package inference

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	tflite "github.com/mattn/go-tflite"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/camclassify/camclassify/logging"
)

// tfliteLoader holds the constructors used to build an interpreter, so they can be swapped in tests.
type tfliteLoader struct {
	modelLoader       func(path string) *tflite.Model
	optionsLoader     func() *tflite.InterpreterOptions
	delegateLoader    func(spec *DelegateSpec) (*ExternalDelegate, error)
	interpreterLoader func(model *tflite.Model, options *tflite.InterpreterOptions) *tflite.Interpreter
}

func defaultTFLiteLoader() *tfliteLoader {
	return &tfliteLoader{
		modelLoader:       tflite.NewModelFromFile,
		optionsLoader:     tflite.NewInterpreterOptions,
		delegateLoader:    NewExternalDelegate,
		interpreterLoader: tflite.NewInterpreter,
	}
}

// tfliteEngine drives a TensorFlow Lite interpreter. Native objects are pushed onto rel as they
// are created, so the interpreter goes before the delegate it uses and the model goes last.
type tfliteEngine struct {
	interpreter *tflite.Interpreter
	rel         releaser
}

// LoadTFLite loads the model at modelPath, binds the optional delegate and thread hint, and
// allocates tensors. numThreads <= 0 uses one thread per CPU. Every failure wraps ErrModelLoad.
func LoadTFLite(
	ctx context.Context,
	modelPath string,
	delegate *DelegateSpec,
	numThreads int,
	logger logging.Logger,
) (Session, error) {
	return defaultTFLiteLoader().loadSession(ctx, modelPath, delegate, numThreads, logger)
}

func (l *tfliteLoader) loadSession(
	ctx context.Context,
	modelPath string,
	delegate *DelegateSpec,
	numThreads int,
	logger logging.Logger,
) (Session, error) {
	_, span := trace.StartSpan(ctx, "inference::LoadTFLite")
	defer span.End()

	fullpath, err := filepath.Abs(modelPath)
	if err != nil {
		fullpath = modelPath
	}
	if _, err := os.Stat(fullpath); err != nil {
		return nil, loadError(err, "file not found at %s", fullpath)
	}
	eng, err := l.load(fullpath, delegate, numThreads, logger)
	if err != nil {
		return nil, err
	}
	return newModelSession(fullpath, eng, logger)
}

// load builds and allocates an interpreter. On error everything created so far is released.
func (l *tfliteLoader) load(
	path string,
	delegate *DelegateSpec,
	numThreads int,
	logger logging.Logger,
) (_ *tfliteEngine, err error) {
	e := &tfliteEngine{}
	defer func() {
		if err != nil {
			e.release()
		}
	}()

	model := l.modelLoader(path)
	if model == nil {
		return nil, loadError(nil, "could not parse model at %s", path)
	}
	e.rel.push(model.Delete)

	options := l.optionsLoader()
	if options == nil {
		return nil, loadError(nil, "interpreter options failed to be created")
	}
	e.rel.push(options.Delete)
	threads := resolveThreads(numThreads)
	options.SetNumThread(threads)
	options.SetErrorReporter(func(msg string, _ interface{}) {
		logger.Warnw("tflite reported an error", "msg", msg)
	}, nil)

	if delegate != nil {
		logger.Infow("loading external delegate", "delegate", delegate.String())
		d, err := l.delegateLoader(delegate)
		if err != nil {
			return nil, loadError(err, "could not load delegate %s", delegate.LibraryPath)
		}
		e.rel.push(d.Delete)
		options.AddDelegate(d)
	}

	e.interpreter = l.interpreterLoader(model, options)
	if e.interpreter == nil {
		return nil, loadError(nil, "failed to create interpreter")
	}
	e.rel.push(e.interpreter.Delete)
	if status := e.interpreter.AllocateTensors(); status != tflite.OK {
		return nil, loadError(nil, "failed to allocate tensors (status %v)", status)
	}
	if e.interpreter.GetInputTensorCount() < 1 || e.interpreter.GetOutputTensorCount() < 1 {
		return nil, loadError(nil, "model must have at least one input and one output tensor")
	}
	logger.Debugw("interpreter ready", "path", path, "threads", threads)
	return e, nil
}

func typeName(t tflite.TensorType) string {
	switch t {
	case tflite.UInt8:
		return UInt8
	case tflite.Float32:
		return Float32
	default:
		return strings.ToLower(t.String())
	}
}

func dims(t *tflite.Tensor) []int {
	out := make([]int, t.NumDims())
	for i := range out {
		out[i] = t.Dim(i)
	}
	return out
}

func (e *tfliteEngine) inputSpec() (string, []int) {
	t := e.interpreter.GetInputTensor(0)
	return typeName(t.Type()), dims(t)
}

func (e *tfliteEngine) outputSpec() (string, []int) {
	t := e.interpreter.GetOutputTensor(0)
	return typeName(t.Type()), dims(t)
}

func (e *tfliteEngine) setInput(data interface{}) error {
	if status := e.interpreter.GetInputTensor(0).CopyFromBuffer(data); status != tflite.OK {
		return errors.Errorf("status %v", status)
	}
	return nil
}

func (e *tfliteEngine) invoke() error {
	if status := e.interpreter.Invoke(); status != tflite.OK {
		return errors.Errorf("status %v", status)
	}
	return nil
}

func (e *tfliteEngine) output() (interface{}, error) {
	out := e.interpreter.GetOutputTensor(0)
	switch out.Type() {
	case tflite.UInt8:
		return out.UInt8s(), nil
	case tflite.Float32:
		return out.Float32s(), nil
	default:
		return nil, errors.Errorf("unsupported output tensor type %v", out.Type())
	}
}

func (e *tfliteEngine) release() {
	e.rel.release()
	e.interpreter = nil
}
