package inference

import (
	"context"
	"runtime"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"gorgonia.org/tensor"

	"github.com/camclassify/camclassify/logging"
)

type fakeEngine struct {
	inType, outType   string
	inShape, outShape []int
	out               interface{}
	invokeErr         error

	input    interface{}
	invokes  int
	releases int
}

func (f *fakeEngine) inputSpec() (string, []int) { return f.inType, f.inShape }
func (f *fakeEngine) outputSpec() (string, []int) { return f.outType, f.outShape }

func (f *fakeEngine) setInput(data interface{}) error {
	f.input = data
	return nil
}

func (f *fakeEngine) invoke() error {
	f.invokes++
	return f.invokeErr
}

func (f *fakeEngine) output() (interface{}, error) { return f.out, nil }
func (f *fakeEngine) release() { f.releases++ }

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		inType:   UInt8,
		inShape:  []int{1, 2, 2, 3},
		outType:  UInt8,
		outShape: []int{1, 3},
		out:      []uint8{10, 200, 45},
	}
}

func TestModelSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	logger, logs := logging.NewObservedTestLogger(t)
	eng := newFakeEngine()

	sess, err := newModelSession("/models/m.tflite", eng, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sess.IOSpec().InputWidth, test.ShouldEqual, 2)
	test.That(t, sess.IOSpec().OutputSize, test.ShouldEqual, 3)
	test.That(t, logs.FilterMessage("model loaded").Len(), test.ShouldEqual, 1)

	test.That(t, sess.Warmup(ctx), test.ShouldBeNil)
	test.That(t, eng.invokes, test.ShouldEqual, 1)

	pixels := []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	in := tensor.New(tensor.WithShape(1, 2, 2, 3), tensor.WithBacking(pixels))
	out, err := sess.Infer(ctx, in)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, eng.invokes, test.ShouldEqual, 2)
	test.That(t, eng.input, test.ShouldResemble, pixels)
	test.That(t, out.Shape(), test.ShouldResemble, tensor.Shape{1, 3})
	test.That(t, out.Data(), test.ShouldResemble, []uint8{10, 200, 45})

	// the output is a view of the engine buffer
	eng.out.([]uint8)[1] = 7
	test.That(t, out.Data().([]uint8)[1], test.ShouldEqual, uint8(7))

	test.That(t, sess.Close(ctx), test.ShouldBeNil)
	test.That(t, eng.releases, test.ShouldEqual, 1)
	err = sess.Close(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "already closed")
	test.That(t, eng.releases, test.ShouldEqual, 1)

	test.That(t, sess.Warmup(ctx), test.ShouldNotBeNil)
	_, err = sess.Infer(ctx, in)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, eng.invokes, test.ShouldEqual, 2)
}

func TestModelSessionRejectsMismatchedInput(t *testing.T) {
	eng := newFakeEngine()
	sess, err := newModelSession("m.tflite", eng, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	in := tensor.New(tensor.WithShape(1, 2, 2, 3), tensor.WithBacking(make([]float32, 12)))
	_, err = sess.Infer(context.Background(), in)
	test.That(t, errors.Is(err, ErrTensorMismatch), test.ShouldBeTrue)
	test.That(t, eng.invokes, test.ShouldEqual, 0)
	test.That(t, eng.input, test.ShouldBeNil)
}

func TestModelSessionInvokeFailure(t *testing.T) {
	eng := newFakeEngine()
	eng.invokeErr = errors.New("status 1")
	sess, err := newModelSession("m.tflite", eng, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	err = sess.Warmup(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "warm-up")
	in := tensor.New(tensor.WithShape(1, 2, 2, 3), tensor.WithBacking(make([]uint8, 12)))
	_, err = sess.Infer(context.Background(), in)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invoke failed")
}

func TestModelSessionReleasesOnBadSpec(t *testing.T) {
	eng := newFakeEngine()
	eng.inShape = []int{1, 2, 2}
	sess, err := newModelSession("m.tflite", eng, logging.NewTestLogger(t))
	test.That(t, sess, test.ShouldBeNil)
	test.That(t, errors.Is(err, ErrModelLoad), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not an image classifier")
	test.That(t, eng.releases, test.ShouldEqual, 1)
}

func TestReleaserRunsInReverseOnce(t *testing.T) {
	var order []string
	var r releaser
	for _, name := range []string{"model", "options", "delegate", "interpreter"} {
		name := name
		r.push(func() { order = append(order, name) })
	}
	r.release()
	test.That(t, order, test.ShouldResemble, []string{"interpreter", "delegate", "options", "model"})
	r.release()
	test.That(t, order, test.ShouldHaveLength, 4)
}

func TestResolveThreads(t *testing.T) {
	test.That(t, resolveThreads(3), test.ShouldEqual, 3)
	test.That(t, resolveThreads(0), test.ShouldEqual, runtime.NumCPU())
	test.That(t, resolveThreads(-2), test.ShouldEqual, runtime.NumCPU())
}
