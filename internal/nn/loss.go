package nn

import (
	"fmt"

	"github.com/flint-ml/flint/internal/tensor"
)

// NLLBackend is implemented by backends that support negative log-likelihood
// loss over log-probabilities.
type NLLBackend interface {
	NLL(logProbs, labels *tensor.RawTensor) *tensor.RawTensor
}

// CrossEntropyBackend is implemented by backends that support the fused
// log-softmax + NLL loss over raw logits.
type CrossEntropyBackend interface {
	CrossEntropy(logits, labels *tensor.RawTensor) *tensor.RawTensor
}

// NLLLoss computes the negative log-likelihood of integer class labels under
// log-probabilities, averaged over the batch:
//
//	Loss = -mean(logProbs[b, labels[b]])
//
// Inputs are expected to already be log-probabilities (e.g. LogSoftmax
// output). For raw logits use CrossEntropyLoss, which fuses the two steps.
type NLLLoss[B tensor.Backend] struct {
	backend B
}

// NewNLLLoss creates a new NLL loss function.
func NewNLLLoss[B tensor.Backend](backend B) *NLLLoss[B] {
	return &NLLLoss[B]{backend: backend}
}

// Forward computes the loss as a rank-0 scalar tensor.
//
// logProbs must be [batch_size, num_classes] and labels [batch_size] with
// every label in [0, num_classes). Violations return a ShapeError or
// LabelRangeError before any operation is recorded.
func (n *NLLLoss[B]) Forward(
	logProbs *tensor.Tensor[float32, B],
	labels *tensor.Tensor[int32, B],
) (*tensor.Tensor[float32, B], error) {
	if err := validateLossInputs("nll", logProbs, labels); err != nil {
		return nil, err
	}

	nllBackend, ok := any(n.backend).(NLLBackend)
	if !ok {
		panic("NLLLoss: backend must implement NLL (use autodiff.Engine)")
	}

	return tensor.New[float32, B](nllBackend.NLL(logProbs.Raw(), labels.Raw()), n.backend), nil
}

// Parameters returns nil (loss functions have no trainable parameters).
func (n *NLLLoss[B]) Parameters() []*Parameter[B] {
	return nil
}

// CrossEntropyLoss computes cross-entropy over raw logits, averaged over the
// batch. It fuses log-softmax and NLL: numerically it uses the log-sum-exp
// trick in the forward pass, and its backward pass collapses to
// (softmax - onehot) / batch_size. Equivalent to NLLLoss over LogSoftmax
// output, but preferred when training.
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates a new cross-entropy loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{backend: backend}
}

// Forward computes the loss as a rank-0 scalar tensor.
//
// logits must be [batch_size, num_classes] and labels [batch_size] with
// every label in [0, num_classes). Violations return a ShapeError or
// LabelRangeError before any operation is recorded.
func (c *CrossEntropyLoss[B]) Forward(
	logits *tensor.Tensor[float32, B],
	labels *tensor.Tensor[int32, B],
) (*tensor.Tensor[float32, B], error) {
	if err := validateLossInputs("cross-entropy", logits, labels); err != nil {
		return nil, err
	}

	ceBackend, ok := any(c.backend).(CrossEntropyBackend)
	if !ok {
		panic("CrossEntropyLoss: backend must implement CrossEntropy (use autodiff.Engine)")
	}

	return tensor.New[float32, B](ceBackend.CrossEntropy(logits.Raw(), labels.Raw()), c.backend), nil
}

// Parameters returns nil (loss functions have no trainable parameters).
func (c *CrossEntropyLoss[B]) Parameters() []*Parameter[B] {
	return nil
}

// validateLossInputs checks the scores/labels contract shared by both losses.
func validateLossInputs[B tensor.Backend](
	op string,
	scores *tensor.Tensor[float32, B],
	labels *tensor.Tensor[int32, B],
) error {
	scoresShape := scores.Shape()
	if len(scoresShape) != 2 {
		return &tensor.ShapeError{
			Op:   op,
			Want: "[batch_size, num_classes]",
			Got:  fmt.Sprintf("%v", scoresShape),
		}
	}

	labelsShape := labels.Shape()
	if len(labelsShape) != 1 || labelsShape[0] != scoresShape[0] {
		return &tensor.ShapeError{
			Op:   op,
			Want: fmt.Sprintf("labels [%d]", scoresShape[0]),
			Got:  fmt.Sprintf("%v", labelsShape),
		}
	}

	numClasses := scoresShape[1]
	for i, label := range labels.Data() {
		if label < 0 || int(label) >= numClasses {
			return &LabelRangeError{Index: i, Label: label, NumClasses: numClasses}
		}
	}

	return nil
}
