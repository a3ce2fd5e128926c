package nn

import (
	"github.com/flint-ml/flint/internal/tensor"
)

// ReLUBackend is implemented by backends that support ReLU activation.
type ReLUBackend interface {
	ReLU(*tensor.RawTensor) *tensor.RawTensor
}

// LogSoftmaxBackend is implemented by backends that support row-wise
// log-softmax.
type LogSoftmaxBackend interface {
	LogSoftmax(*tensor.RawTensor) *tensor.RawTensor
}

// ReLU is the rectified linear unit activation module: f(x) = max(0, x).
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a new ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies ReLU element-wise.
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()

	if reluBackend, ok := any(backend).(ReLUBackend); ok {
		return tensor.New[float32, B](reluBackend.ReLU(input.Raw()), backend)
	}

	panic("ReLU: backend must implement ReLU (use autodiff.Engine)")
}

// Parameters returns nil (ReLU has no trainable parameters).
func (r *ReLU[B]) Parameters() []*Parameter[B] {
	return nil
}

// LogSoftmax applies row-wise log-softmax over 2D inputs
// [batch_size, num_classes]. Typically the last layer before NLLLoss;
// prefer CrossEntropyLoss over the explicit pair when training.
type LogSoftmax[B tensor.Backend] struct{}

// NewLogSoftmax creates a new LogSoftmax module.
func NewLogSoftmax[B tensor.Backend]() *LogSoftmax[B] {
	return &LogSoftmax[B]{}
}

// Forward converts logits to log-probabilities.
func (s *LogSoftmax[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()

	if lsBackend, ok := any(backend).(LogSoftmaxBackend); ok {
		return tensor.New[float32, B](lsBackend.LogSoftmax(input.Raw()), backend)
	}

	panic("LogSoftmax: backend must implement LogSoftmax (use autodiff.Engine)")
}

// Parameters returns nil (LogSoftmax has no trainable parameters).
func (s *LogSoftmax[B]) Parameters() []*Parameter[B] {
	return nil
}
