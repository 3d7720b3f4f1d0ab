// Package inference wraps the model inference engine behind a small session interface:
// load a model once, warm it up, then run one synchronous forward pass per call.
package inference

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

var (
	// ErrMalformedDelegateOption is returned when a delegate option token is not a key:value pair.
	ErrMalformedDelegateOption = errors.New("malformed delegate option")
	// ErrModelLoad is returned when a model cannot be loaded, bound, or allocated.
	ErrModelLoad = errors.New("failed to load model")
	// ErrTensorMismatch is returned when an input tensor does not fit the model's input slot.
	ErrTensorMismatch = errors.New("input tensor does not match model input")
)

const (
	// UInt8 is the tensor type of quantized image models.
	UInt8 = "uint8"
	// Float32 is the tensor type of floating point models.
	Float32 = "float32"
)

// Session is a loaded model ready to serve. Implementations are not safe for concurrent use.
type Session interface {
	// IOSpec describes the model's input and output slots. It never changes after load.
	IOSpec() ModelIOSpec
	// Warmup runs one untimed invocation to absorb lazy initialization costs.
	Warmup(ctx context.Context) error
	// Infer writes input into the model's input slot, runs one forward pass and returns a view
	// over the session owned output buffer. The view is only valid until the next Infer call.
	Infer(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error)
	// Close releases the model, interpreter and delegate.
	Close(ctx context.Context) error
}

// ModelIOSpec is derived once after a model is loaded.
type ModelIOSpec struct {
	InputType     string
	InputShape    []int
	InputHeight   int
	InputWidth    int
	InputChannels int

	OutputType  string
	OutputShape []int
	// OutputSize is the number of classes, i.e. the output element count.
	OutputSize int
}

// InputIsFloating reports whether the model expects normalized float32 input.
func (s ModelIOSpec) InputIsFloating() bool {
	return s.InputType == Float32
}

// OutputIsFloating reports whether the model's scores are already probabilities.
func (s ModelIOSpec) OutputIsFloating() bool {
	return s.OutputType == Float32
}

func (s ModelIOSpec) String() string {
	return fmt.Sprintf("input %s%v, output %s%v", s.InputType, s.InputShape, s.OutputType, s.OutputShape)
}

// NewModelIOSpec validates raw tensor metadata and builds a ModelIOSpec. The input must be
// an NHWC image tensor with a batch of one.
func NewModelIOSpec(inType string, inShape []int, outType string, outShape []int) (ModelIOSpec, error) {
	if inType != UInt8 && inType != Float32 {
		return ModelIOSpec{}, errors.Errorf("unsupported input tensor type %q, try uint8 or float32", inType)
	}
	if outType != UInt8 && outType != Float32 {
		return ModelIOSpec{}, errors.Errorf("unsupported output tensor type %q, try uint8 or float32", outType)
	}
	if len(inShape) != 4 {
		return ModelIOSpec{}, errors.Errorf("expected NHWC input shape, got %v", inShape)
	}
	if inShape[0] != 1 {
		return ModelIOSpec{}, errors.Errorf("expected input batch size of 1, got %d", inShape[0])
	}
	if inShape[1] <= 0 || inShape[2] <= 0 || inShape[3] <= 0 {
		return ModelIOSpec{}, errors.Errorf("input shape must be positive, got %v", inShape)
	}
	if len(outShape) == 0 {
		return ModelIOSpec{}, errors.New("model has a scalar output, expected a score vector")
	}
	size := 1
	for _, d := range outShape {
		if d <= 0 {
			return ModelIOSpec{}, errors.Errorf("output shape must be positive, got %v", outShape)
		}
		size *= d
	}

	return ModelIOSpec{
		InputType:     inType,
		InputShape:    append([]int(nil), inShape...),
		InputHeight:   inShape[1],
		InputWidth:    inShape[2],
		InputChannels: inShape[3],
		OutputType:    outType,
		OutputShape:   append([]int(nil), outShape...),
		OutputSize:    size,
	}, nil
}

// CheckInput verifies that t fits the input slot exactly.
func (s ModelIOSpec) CheckInput(t *tensor.Dense) error {
	if t == nil {
		return errors.Wrap(ErrTensorMismatch, "nil tensor")
	}
	shape := t.Shape()
	if len(shape) != len(s.InputShape) {
		return errors.Wrapf(ErrTensorMismatch, "got shape %v, want %v", shape, s.InputShape)
	}
	for i := range shape {
		if shape[i] != s.InputShape[i] {
			return errors.Wrapf(ErrTensorMismatch, "got shape %v, want %v", shape, s.InputShape)
		}
	}
	switch {
	case s.InputType == UInt8 && t.Dtype() == tensor.Uint8:
	case s.InputType == Float32 && t.Dtype() == tensor.Float32:
	default:
		return errors.Wrapf(ErrTensorMismatch, "got dtype %v, want %s", t.Dtype(), s.InputType)
	}
	return nil
}
