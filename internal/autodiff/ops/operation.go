// Package ops defines the differentiable operations recorded on the gradient tape.
//
// Each operation captures its input and output tensors during the forward
// pass and knows how to turn the gradient of its output into gradients of its
// inputs during the backward pass.
//
// Supported operations:
//   - AddOp, SubOp, MulOp, DivOp: element-wise arithmetic with broadcasting
//   - MatMulOp: matrix multiplication (d(A@B)/dA = grad@B^T, d(A@B)/dB = A^T@grad)
//   - TransposeOp, ReshapeOp: shape movement (gradients move back the same way)
//   - ReLUOp: rectified linear unit (d/dx = 1 if x > 0, else 0)
//   - LogSoftmaxOp: row-wise log-softmax
//   - NLLOp: negative log-likelihood over log-probabilities
//   - CrossEntropyOp: fused log-softmax + NLL
//   - MeanOp: mean reduction to a scalar
package ops

import "github.com/flint-ml/flint/internal/tensor"

// Operation is a differentiable operation in the computation graph.
type Operation interface {
	// Backward computes gradients for the inputs given the output gradient.
	// The returned slice is parallel to Inputs(); a nil entry means no
	// gradient flows to that input (e.g. integer class labels).
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors of this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}
