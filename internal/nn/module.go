// Package nn implements neural network building blocks.
//
// Provided components:
//   - Module interface: base interface for all layers
//   - Parameter: trainable tensors with gradient accumulation
//   - Linear: fully connected layer
//   - ReLU, LogSoftmax: activations
//   - NLLLoss, CrossEntropyLoss: classification losses
//   - Sequential: container for stacking layers
//
// Design follows PyTorch's nn.Module adapted to Go generics.
package nn

import (
	"github.com/flint-ml/flint/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules compose into larger architectures:
//
//	model := nn.NewSequential[B](
//	    nn.NewLinear(784, 128, backend),
//	    nn.NewReLU[B](),
//	    nn.NewLinear(128, 10, backend),
//	)
type Module[B tensor.Backend] interface {
	// Forward computes the module's output for the given input.
	// Linear expects [batch_size, in_features].
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module,
	// including those of nested modules. Modules without trainable
	// parameters return nil.
	Parameters() []*Parameter[B]
}
