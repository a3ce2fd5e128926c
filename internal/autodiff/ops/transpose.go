package ops

import "github.com/flint-ml/flint/internal/tensor"

// TransposeOp records a dimension permutation.
//
// Transpose is linear, so the backward pass permutes the output gradient with
// the inverse of the forward permutation. Recording it matters: the backend
// materializes a new tensor for the transposed result, and without this op
// gradients computed for that new tensor would never reach the original.
type TransposeOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	axes   []int // forward permutation
}

// NewTransposeOp creates a new TransposeOp. axes must be the explicit
// permutation used in the forward pass.
func NewTransposeOp(input, output *tensor.RawTensor, axes []int) *TransposeOp {
	return &TransposeOp{
		input:  input,
		output: output,
		axes:   axes,
	}
}

// Backward applies the inverse permutation to the output gradient.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for i, ax := range op.axes {
		inverse[ax] = i
	}
	return []*tensor.RawTensor{backend.Transpose(outputGrad, inverse...)}
}

// Inputs returns the input tensor.
func (op *TransposeOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the transposed tensor.
func (op *TransposeOp) Output() *tensor.RawTensor {
	return op.output
}
