// Package train implements the training loop: batch validation, the
// forward/backward/step cycle, and epoch bookkeeping.
package train

import (
	"fmt"

	"github.com/flint-ml/flint/internal/tensor"
)

// Batch pairs a 2D float32 input matrix with its int32 class labels.
type Batch[B tensor.Backend] struct {
	Inputs *tensor.Tensor[float32, B] // [batch_size, num_features]
	Labels *tensor.Tensor[int32, B]   // [batch_size]
}

// NewBatch validates the inputs/labels pairing and returns a Batch.
// Inputs must be 2D, labels 1D, with matching batch sizes.
func NewBatch[B tensor.Backend](
	inputs *tensor.Tensor[float32, B],
	labels *tensor.Tensor[int32, B],
) (*Batch[B], error) {
	inputsShape := inputs.Shape()
	if len(inputsShape) != 2 {
		return nil, &tensor.ShapeError{
			Op:   "batch",
			Want: "2D inputs [batch_size, num_features]",
			Got:  fmt.Sprintf("%v", inputsShape),
		}
	}

	labelsShape := labels.Shape()
	if len(labelsShape) != 1 || labelsShape[0] != inputsShape[0] {
		return nil, &tensor.ShapeError{
			Op:   "batch",
			Want: fmt.Sprintf("1D labels [%d]", inputsShape[0]),
			Got:  fmt.Sprintf("%v", labelsShape),
		}
	}

	return &Batch[B]{Inputs: inputs, Labels: labels}, nil
}

// Size returns the number of samples in the batch.
func (b *Batch[B]) Size() int {
	return b.Inputs.Shape()[0]
}
