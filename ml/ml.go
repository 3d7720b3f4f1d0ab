// Package ml provides some fundamental machine learning primitives: numeric conversion of
// raw model outputs, and label files.
package ml

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"gorgonia.org/tensor"
)

// number interface for converting between numbers.
type number interface {
	constraints.Integer | constraints.Float
}

// convertNumberSlice converts any number slice into another number slice.
func convertNumberSlice[T1, T2 number](t1 []T1) []T2 {
	t2 := make([]T2, len(t1))
	for i := range t1 {
		t2[i] = T2(t1[i])
	}
	return t2
}

// ToFloat64s copies a numeric backing slice (as returned by tensor.Dense.Data) into a new
// []float64. A scalar is treated as a slice of length one. The input is never modified.
func ToFloat64s(data interface{}) ([]float64, error) {
	switch v := data.(type) {
	case []float64:
		out := make([]float64, len(v))
		copy(out, v)
		return out, nil
	case float64:
		return []float64{v}, nil
	case []float32:
		return convertNumberSlice[float32, float64](v), nil
	case float32:
		return []float64{float64(v)}, nil
	case []uint8:
		return convertNumberSlice[uint8, float64](v), nil
	case uint8:
		return []float64{float64(v)}, nil
	case []int8:
		return convertNumberSlice[int8, float64](v), nil
	case []int16:
		return convertNumberSlice[int16, float64](v), nil
	case []uint16:
		return convertNumberSlice[uint16, float64](v), nil
	case []int32:
		return convertNumberSlice[int32, float64](v), nil
	case []uint32:
		return convertNumberSlice[uint32, float64](v), nil
	case []int64:
		return convertNumberSlice[int64, float64](v), nil
	case []uint64:
		return convertNumberSlice[uint64, float64](v), nil
	case []int:
		return convertNumberSlice[int, float64](v), nil
	case []uint:
		return convertNumberSlice[uint, float64](v), nil
	default:
		return nil, errors.Errorf("dont know how to convert slice of %T into a []float64", data)
	}
}

// IsFloating reports whether a tensor's backing data is a floating point type.
func IsFloating(t *tensor.Dense) bool {
	switch t.Dtype() {
	case tensor.Float32, tensor.Float64:
		return true
	default:
		return false
	}
}
