package ops

import "github.com/flint-ml/flint/internal/tensor"

// DivOp records element-wise division: output = a / b.
//
// d(a/b)/da = 1/b and d(a/b)/db = -a/b² = -output/b.
type DivOp struct {
	inputs []*tensor.RawTensor // [a, b]
	output *tensor.RawTensor
}

// NewDivOp creates a new DivOp.
func NewDivOp(a, b, output *tensor.RawTensor) *DivOp {
	return &DivOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
	}
}

// Backward computes grad_a = outputGrad / b and grad_b = -outputGrad * output / b,
// reduced over any broadcast dimensions. Reusing the cached forward output
// avoids recomputing a/b².
func (op *DivOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]

	gradA := reduceBroadcast(backend.Div(outputGrad, b), a.Shape(), backend)

	gradBFull := negate(backend.Div(backend.Mul(outputGrad, op.output), b))
	gradB := reduceBroadcast(gradBFull, b.Shape(), backend)

	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns the input tensors [a, b].
func (op *DivOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor a / b.
func (op *DivOp) Output() *tensor.RawTensor {
	return op.output
}
