package inference

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"gorgonia.org/tensor"
)

func TestNewModelIOSpec(t *testing.T) {
	spec, err := NewModelIOSpec(UInt8, []int{1, 224, 224, 3}, UInt8, []int{1, 1001})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spec.InputIsFloating(), test.ShouldBeFalse)
	test.That(t, spec.OutputIsFloating(), test.ShouldBeFalse)
	test.That(t, spec.InputHeight, test.ShouldEqual, 224)
	test.That(t, spec.InputWidth, test.ShouldEqual, 224)
	test.That(t, spec.InputChannels, test.ShouldEqual, 3)
	test.That(t, spec.OutputSize, test.ShouldEqual, 1001)

	spec, err = NewModelIOSpec(Float32, []int{1, 192, 160, 3}, Float32, []int{1, 5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spec.InputIsFloating(), test.ShouldBeTrue)
	test.That(t, spec.InputHeight, test.ShouldEqual, 192)
	test.That(t, spec.InputWidth, test.ShouldEqual, 160)
	test.That(t, spec.String(), test.ShouldEqual, "input float32[1 192 160 3], output float32[1 5]")
}

func TestNewModelIOSpecRejects(t *testing.T) {
	cases := []struct {
		inType   string
		inShape  []int
		outType  string
		outShape []int
	}{
		{"int8", []int{1, 2, 2, 3}, UInt8, []int{1, 3}},
		{UInt8, []int{1, 2, 2, 3}, "int64", []int{1, 3}},
		{UInt8, []int{2, 2, 3}, UInt8, []int{1, 3}},
		{UInt8, []int{4, 2, 2, 3}, UInt8, []int{1, 3}},
		{UInt8, []int{1, 0, 2, 3}, UInt8, []int{1, 3}},
		{UInt8, []int{1, 2, 2, 3}, UInt8, []int{}},
		{UInt8, []int{1, 2, 2, 3}, UInt8, []int{1, 0}},
	}
	for _, c := range cases {
		_, err := NewModelIOSpec(c.inType, c.inShape, c.outType, c.outShape)
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestCheckInput(t *testing.T) {
	spec, err := NewModelIOSpec(UInt8, []int{1, 2, 2, 3}, UInt8, []int{1, 3})
	test.That(t, err, test.ShouldBeNil)

	good := tensor.New(tensor.WithShape(1, 2, 2, 3), tensor.WithBacking(make([]uint8, 12)))
	test.That(t, spec.CheckInput(good), test.ShouldBeNil)

	wrongShape := tensor.New(tensor.WithShape(1, 3, 2, 3), tensor.WithBacking(make([]uint8, 18)))
	test.That(t, errors.Is(spec.CheckInput(wrongShape), ErrTensorMismatch), test.ShouldBeTrue)

	wrongType := tensor.New(tensor.WithShape(1, 2, 2, 3), tensor.WithBacking(make([]float32, 12)))
	test.That(t, errors.Is(spec.CheckInput(wrongType), ErrTensorMismatch), test.ShouldBeTrue)

	test.That(t, errors.Is(spec.CheckInput(nil), ErrTensorMismatch), test.ShouldBeTrue)
}
