package ops

import "github.com/flint-ml/flint/internal/tensor"

// ReshapeOp records a shape change over the same data.
//
// The backward pass reshapes the output gradient back to the input shape.
// Recording it keeps gradients flowing to reshaped parameters, e.g. a bias
// of shape [out] viewed as [1, out] for broadcasting.
type ReshapeOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewReshapeOp creates a new ReshapeOp.
func NewReshapeOp(input, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{
		input:  input,
		output: output,
	}
}

// Backward reshapes the output gradient to the input's shape.
func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(outputGrad, op.input.Shape())}
}

// Inputs returns the input tensor.
func (op *ReshapeOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the reshaped tensor.
func (op *ReshapeOp) Output() *tensor.RawTensor {
	return op.output
}
