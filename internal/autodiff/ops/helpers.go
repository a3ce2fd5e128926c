package ops

import (
	"fmt"

	"github.com/flint-ml/flint/internal/tensor"
)

// float constrains kernel element types to the differentiable dtypes.
type float interface {
	~float32 | ~float64
}

// reduceBroadcast reduces a gradient tensor to match the target shape.
// Needed when broadcasting was used in the forward pass: the gradient of a
// broadcast input is the sum of the output gradient over every position the
// input was replicated into.
//
// Example:
//
//	forward:  a[1,4] + b[3,4] -> c[3,4]   (a broadcast along dim 0)
//	backward: grad_c[3,4] -> grad_a[1,4]  (sum along dim 0)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	if gradShape.Equal(targetShape) {
		// Clone so later in-map accumulation never aliases an upstream gradient.
		return grad.Clone()
	}

	if len(targetShape) == 0 {
		return sumAll(grad)
	}

	// Broadcasting aligns shapes from the right: first collapse the extra
	// leading dimensions, then the dimensions where the target is 1.
	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = sumAlongDimension(result, 0)
		result = backend.Reshape(result, result.Shape()[1:])
	}

	resultShape := result.Shape()
	for i := 0; i < len(targetShape); i++ {
		if targetShape[i] == 1 && resultShape[i] > 1 {
			result = sumAlongDimension(result, i)
			resultShape = result.Shape()
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}
	return result
}

// sumAll sums every element into a rank-0 scalar.
func sumAll(t *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{}, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("sumAll: %v", err))
	}

	switch t.DType() {
	case tensor.Float32:
		var sum float32
		for _, v := range t.AsFloat32() {
			sum += v
		}
		result.AsFloat32()[0] = sum
	case tensor.Float64:
		var sum float64
		for _, v := range t.AsFloat64() {
			sum += v
		}
		result.AsFloat64()[0] = sum
	default:
		panic(fmt.Sprintf("sumAll: unsupported dtype %s", t.DType()))
	}

	return result
}

// sumAlongDimension sums a tensor along one dimension, keeping it as size 1.
func sumAlongDimension(t *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := t.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("sumAlongDimension: invalid dimension %d for shape %v", dim, shape))
	}

	outShape := shape.Clone()
	outShape[dim] = 1

	result, err := tensor.NewRaw(outShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("sumAlongDimension: %v", err))
	}

	switch t.DType() {
	case tensor.Float32:
		sumDimKernel(result.AsFloat32(), t.AsFloat32(), shape, dim)
	case tensor.Float64:
		sumDimKernel(result.AsFloat64(), t.AsFloat64(), shape, dim)
	default:
		panic(fmt.Sprintf("sumAlongDimension: unsupported dtype %s", t.DType()))
	}

	return result
}

// sumDimKernel accumulates src into dst with the reduced dimension collapsed.
// Flat layout is (outer, dim, inner) in row-major order.
func sumDimKernel[T float](dst, src []T, shape tensor.Shape, dim int) {
	outer := 1
	for _, s := range shape[:dim] {
		outer *= s
	}
	inner := 1
	for _, s := range shape[dim+1:] {
		inner *= s
	}
	dimSize := shape[dim]

	for o := 0; o < outer; o++ {
		dstBase := o * inner
		for d := 0; d < dimSize; d++ {
			srcBase := (o*dimSize + d) * inner
			for in := 0; in < inner; in++ {
				dst[dstBase+in] += src[srcBase+in]
			}
		}
	}
}

// negate returns -t as a fresh tensor.
func negate(t *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(t.Shape(), t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("negate: %v", err))
	}

	switch t.DType() {
	case tensor.Float32:
		src := t.AsFloat32()
		dst := result.AsFloat32()
		for i := range src {
			dst[i] = -src[i]
		}
	case tensor.Float64:
		src := t.AsFloat64()
		dst := result.AsFloat64()
		for i := range src {
			dst[i] = -src[i]
		}
	default:
		panic(fmt.Sprintf("negate: unsupported dtype %s", t.DType()))
	}

	return result
}

// scalarValue reads a rank-0 (or single-element) tensor as float64.
func scalarValue(t *tensor.RawTensor) float64 {
	switch t.DType() {
	case tensor.Float32:
		return float64(t.AsFloat32()[0])
	case tensor.Float64:
		return t.AsFloat64()[0]
	default:
		panic(fmt.Sprintf("scalarValue: unsupported dtype %s", t.DType()))
	}
}
