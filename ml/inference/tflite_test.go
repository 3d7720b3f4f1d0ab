//go:build !no_tflite && !no_cgo

package inference

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	tflite "github.com/mattn/go-tflite"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/camclassify/camclassify/logging"
)

func TestDefaultTFLiteLoader(t *testing.T) {
	loader := defaultTFLiteLoader()
	test.That(t, reflect.TypeOf(loader.modelLoader) == reflect.TypeOf(tflite.NewModelFromFile), test.ShouldBeTrue)
	test.That(t, reflect.TypeOf(loader.optionsLoader) == reflect.TypeOf(tflite.NewInterpreterOptions), test.ShouldBeTrue)
	test.That(t, reflect.TypeOf(loader.delegateLoader) == reflect.TypeOf(NewExternalDelegate), test.ShouldBeTrue)
	test.That(t, reflect.TypeOf(loader.interpreterLoader) == reflect.TypeOf(tflite.NewInterpreter), test.ShouldBeTrue)
}

func TestLoadTFLiteMissingFile(t *testing.T) {
	logger := logging.NewTestLogger(t)
	sess, err := LoadTFLite(context.Background(), filepath.Join(t.TempDir(), "nope.tflite"), nil, 2, logger)
	test.That(t, sess, test.ShouldBeNil)
	test.That(t, errors.Is(err, ErrModelLoad), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "file not found")
}

// countingLoader wraps the default constructors and records which stages ran.
type countingLoader struct {
	models, options, delegates, interpreters int
	delegateSpec                             *DelegateSpec
}

func (c *countingLoader) loader(model *tflite.Model, delegateErr error) *tfliteLoader {
	return &tfliteLoader{
		modelLoader: func(path string) *tflite.Model {
			c.models++
			return model
		},
		optionsLoader: func() *tflite.InterpreterOptions {
			c.options++
			return tflite.NewInterpreterOptions()
		},
		delegateLoader: func(spec *DelegateSpec) (*ExternalDelegate, error) {
			c.delegates++
			c.delegateSpec = spec
			if delegateErr != nil {
				return nil, delegateErr
			}
			return &ExternalDelegate{}, nil
		},
		interpreterLoader: func(*tflite.Model, *tflite.InterpreterOptions) *tflite.Interpreter {
			c.interpreters++
			return nil
		},
	}
}

func writeModelFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "m.tflite")
	test.That(t, os.WriteFile(path, []byte("not a flatbuffer"), 0o600), test.ShouldBeNil)
	return path
}

func TestLoadTFLiteUnparsableModel(t *testing.T) {
	var c countingLoader
	sess, err := c.loader(nil, nil).loadSession(
		context.Background(), writeModelFile(t), nil, 1, logging.NewTestLogger(t))
	test.That(t, sess, test.ShouldBeNil)
	test.That(t, errors.Is(err, ErrModelLoad), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "could not parse model")
	test.That(t, c.models, test.ShouldEqual, 1)
	test.That(t, c.options, test.ShouldEqual, 0)
}

func TestLoadTFLiteDelegateFailure(t *testing.T) {
	var c countingLoader
	spec := NewDelegateSpec("/nonexistent/libdelegate.so")
	spec.Set("backends", "GpuAcc")
	e, err := c.loader(&tflite.Model{}, errors.New("dlopen failed")).load(
		writeModelFile(t), spec, 2, logging.NewTestLogger(t))
	test.That(t, e, test.ShouldBeNil)
	test.That(t, errors.Is(err, ErrModelLoad), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "/nonexistent/libdelegate.so")
	test.That(t, err.Error(), test.ShouldContainSubstring, "dlopen failed")
	test.That(t, c.delegates, test.ShouldEqual, 1)
	test.That(t, c.delegateSpec, test.ShouldEqual, spec)
	test.That(t, c.interpreters, test.ShouldEqual, 0)
}

func TestLoadTFLiteInterpreterFailure(t *testing.T) {
	var c countingLoader
	logger, logs := logging.NewObservedTestLogger(t)
	e, err := c.loader(&tflite.Model{}, nil).load(
		writeModelFile(t), NewDelegateSpec("lib.so"), 0, logger)
	test.That(t, e, test.ShouldBeNil)
	test.That(t, errors.Is(err, ErrModelLoad), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to create interpreter")
	test.That(t, c.options, test.ShouldEqual, 1)
	test.That(t, c.delegates, test.ShouldEqual, 1)
	test.That(t, c.interpreters, test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("loading external delegate").Len(), test.ShouldEqual, 1)

	// no delegate spec means the delegate constructor is never reached
	c = countingLoader{}
	_, err = c.loader(&tflite.Model{}, nil).load(writeModelFile(t), nil, 0, logger)
	test.That(t, errors.Is(err, ErrModelLoad), test.ShouldBeTrue)
	test.That(t, c.delegates, test.ShouldEqual, 0)
	test.That(t, c.interpreters, test.ShouldEqual, 1)
}
