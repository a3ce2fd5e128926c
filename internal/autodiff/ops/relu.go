package ops

import (
	"fmt"

	"github.com/flint-ml/flint/internal/tensor"
)

// ReLUOp records the rectified linear unit: output = max(0, x).
//
// The derivative is 1 where x > 0 and 0 elsewhere. At exactly x == 0 the
// subgradient 0 is used.
type ReLUOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{
		input:  input,
		output: output,
	}
}

// Backward masks the output gradient with the positive entries of the input.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad, err := tensor.NewRaw(op.input.Shape(), op.input.DType(), op.input.Device())
	if err != nil {
		panic(fmt.Sprintf("relu backward: %v", err))
	}

	switch op.input.DType() {
	case tensor.Float32:
		reluGradKernel(grad.AsFloat32(), op.input.AsFloat32(), outputGrad.AsFloat32())
	case tensor.Float64:
		reluGradKernel(grad.AsFloat64(), op.input.AsFloat64(), outputGrad.AsFloat64())
	default:
		panic(fmt.Sprintf("relu backward: unsupported dtype %s", op.input.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor.
func (op *ReLUOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the activated tensor.
func (op *ReLUOp) Output() *tensor.RawTensor {
	return op.output
}

func reluGradKernel[T float](dst, input, outGrad []T) {
	for i, v := range input {
		if v > 0 {
			dst[i] = outGrad[i]
		}
	}
}

// ReLUForward computes max(0, x) into a fresh tensor.
func ReLUForward(x *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), device)
	if err != nil {
		panic(fmt.Sprintf("relu: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		reluKernel(result.AsFloat32(), x.AsFloat32())
	case tensor.Float64:
		reluKernel(result.AsFloat64(), x.AsFloat64())
	default:
		panic(fmt.Sprintf("relu: unsupported dtype %s", x.DType()))
	}

	return result
}

func reluKernel[T float](dst, src []T) {
	for i, v := range src {
		if v > 0 {
			dst[i] = v
		}
	}
}
