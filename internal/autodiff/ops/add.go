package ops

import "github.com/flint-ml/flint/internal/tensor"

// AddOp records element-wise addition: output = a + b.
//
// d(a+b)/da = 1 and d(a+b)/db = 1, so the output gradient flows unchanged to
// both inputs. If broadcasting was used in the forward pass, the gradient is
// summed along the broadcast dimensions to match each input shape. This is
// how a bias of shape [1, out] added to activations of shape [batch, out]
// receives its gradient summed over the batch.
type AddOp struct {
	inputs []*tensor.RawTensor // [a, b]
	output *tensor.RawTensor
}

// NewAddOp creates a new AddOp.
func NewAddOp(a, b, output *tensor.RawTensor) *AddOp {
	return &AddOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
	}
}

// Backward routes the output gradient to both inputs, reducing over any
// broadcast dimensions.
func (op *AddOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]

	gradA := reduceBroadcast(outputGrad, a.Shape(), backend)
	gradB := reduceBroadcast(outputGrad, b.Shape(), backend)

	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns the input tensors [a, b].
func (op *AddOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor a + b.
func (op *AddOp) Output() *tensor.RawTensor {
	return op.output
}
