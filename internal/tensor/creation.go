package tensor

import (
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(err) // Shape validation should prevent this
	}
	// Buffer is already zero-initialized by make()
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, T(1), b)
}

// Full creates a tensor filled with a specific value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Scalar creates a rank-0 tensor holding a single value.
func Scalar[T DType, B Backend](value T, b B) *Tensor[T, B] {
	return Full[T, B](Shape{}, value, b)
}

// Randn creates a tensor with values drawn from a standard normal
// distribution using the global math/rand source.
// Only float types are supported.
func Randn[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return RandnFrom[T, B](globalRand{}, shape, b)
}

// normSource yields standard-normal samples. *rand.Rand satisfies it, which
// lets callers pass a seeded source for reproducible tensors.
type normSource interface {
	NormFloat64() float64
}

type globalRand struct{}

func (globalRand) NormFloat64() float64 { return rand.NormFloat64() }

// RandnFrom creates a normally distributed tensor from an explicit source.
//
// Example:
//
//	rng := rand.New(rand.NewSource(42))
//	t := tensor.RandnFrom[float32](rng, tensor.Shape{100, 10}, backend)
func RandnFrom[T DType, B Backend](rng normSource, shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()

	var dummy T
	switch any(dummy).(type) {
	case float32:
		dataF32 := any(data).([]float32)
		for i := range dataF32 {
			dataF32[i] = float32(rng.NormFloat64())
		}
	case float64:
		dataF64 := any(data).([]float64)
		for i := range dataF64 {
			dataF64[i] = rng.NormFloat64()
		}
	default:
		panic("Randn only supports float32 and float64 types")
	}
	return t
}

// Rand creates a tensor with values uniformly distributed in [0, 1).
// Only float types are supported.
func Rand[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()

	var dummy T
	switch any(dummy).(type) {
	case float32:
		dataF32 := any(data).([]float32)
		for i := range dataF32 {
			dataF32[i] = float32(rand.Float64())
		}
	case float64:
		dataF64 := any(data).([]float64)
		for i := range dataF64 {
			dataF64[i] = rand.Float64()
		}
	default:
		panic("Rand only supports float32 and float64 types")
	}
	return t
}

// Arange creates a 1D tensor with values from start to end (exclusive).
func Arange[T DType, B Backend](start, end T, b B) *Tensor[T, B] {
	n := int(math.Floor(float64(end) - float64(start)))
	if n <= 0 {
		panic("end must be greater than start")
	}

	t := Zeros[T, B](Shape{n}, b)
	data := t.Data()
	for i := range data {
		data[i] = start + T(i)
	}
	return t
}
