// Package autodiff implements reverse-mode automatic differentiation using
// the decorator pattern.
//
// Engine wraps any Backend implementation and adds gradient tracking through
// a Tape. During the forward pass every differentiable operation is recorded;
// Backward walks the tape in reverse, applying the chain rule.
//
// Usage:
//
//	engine := autodiff.New(cpu.New())
//	x := tensor.FromSlice([]float32{2}, tensor.Shape{1, 1}, engine)
//	y := x.Mul(x)
//	grads, err := autodiff.Backward(loss, engine)
package autodiff

import (
	"github.com/flint-ml/flint/internal/autodiff/ops"
	"github.com/flint-ml/flint/internal/tensor"
)

// Engine wraps a Backend and adds automatic differentiation.
// It implements tensor.Backend, so tensors built on an Engine record their
// operations transparently.
type Engine[B tensor.Backend] struct {
	inner B
	tape  *Tape
}

// New creates a new Engine wrapping the given backend.
func New[B tensor.Backend](backend B) *Engine[B] {
	return &Engine[B]{
		inner: backend,
		tape:  NewTape(),
	}
}

// Tape returns the gradient tape for manual control: clearing between
// training steps, pausing recording, inspecting recorded operations.
func (e *Engine[B]) Tape() *Tape {
	return e.tape
}

// Inner returns the wrapped backend.
func (e *Engine[B]) Inner() B {
	return e.inner
}

// Name returns the backend name.
func (e *Engine[B]) Name() string {
	return "Autodiff(" + e.inner.Name() + ")"
}

// Device returns the compute device.
func (e *Engine[B]) Device() tensor.Device {
	return e.inner.Device()
}

// NoGrad disables operation recording and returns a function that restores
// the previous recording state. Use it to scope evaluation-only code:
//
//	defer engine.NoGrad()()
//	preds := model.Forward(inputs)
func (e *Engine[B]) NoGrad() func() {
	wasRecording := e.tape.IsRecording()
	e.tape.StopRecording()
	return func() {
		if wasRecording {
			e.tape.StartRecording()
		}
	}
}

// Add performs element-wise addition and records the operation.
func (e *Engine[B]) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	result := e.inner.Add(a, b)
	if e.tape.IsRecording() {
		e.tape.Record(ops.NewAddOp(a, b, result))
	}
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (e *Engine[B]) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	result := e.inner.Sub(a, b)
	if e.tape.IsRecording() {
		e.tape.Record(ops.NewSubOp(a, b, result))
	}
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (e *Engine[B]) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	result := e.inner.Mul(a, b)
	if e.tape.IsRecording() {
		e.tape.Record(ops.NewMulOp(a, b, result))
	}
	return result
}

// Div performs element-wise division and records the operation.
func (e *Engine[B]) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	result := e.inner.Div(a, b)
	if e.tape.IsRecording() {
		e.tape.Record(ops.NewDivOp(a, b, result))
	}
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (e *Engine[B]) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	result := e.inner.MatMul(a, b)
	if e.tape.IsRecording() {
		e.tape.Record(ops.NewMatMulOp(a, b, result))
	}
	return result
}

// Reshape reshapes a tensor and records the operation so gradients flow back
// to the original, e.g. a bias viewed as [1, out] for broadcasting.
func (e *Engine[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := e.inner.Reshape(t, newShape)
	if e.tape.IsRecording() {
		e.tape.Record(ops.NewReshapeOp(t, result))
	}
	return result
}

// Transpose transposes a tensor and records the operation. The backend
// materializes a new tensor for the result, so without recording, gradients
// computed for the transposed tensor would never reach the original.
func (e *Engine[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	ndim := len(t.Shape())
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	result := e.inner.Transpose(t, axes...)
	if e.tape.IsRecording() {
		e.tape.Record(ops.NewTransposeOp(t, result, axes))
	}
	return result
}

// ReLU applies max(0, x) element-wise and records the operation.
func (e *Engine[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := ops.ReLUForward(x, e.Device())
	if e.tape.IsRecording() {
		e.tape.Record(ops.NewReLUOp(x, result))
	}
	return result
}

// LogSoftmax applies row-wise log-softmax to 2D logits and records the
// operation. The forward pass is max-shifted for numerical stability.
func (e *Engine[B]) LogSoftmax(logits *tensor.RawTensor) *tensor.RawTensor {
	result := ops.LogSoftmaxForward(logits, e.Device())
	if e.tape.IsRecording() {
		e.tape.Record(ops.NewLogSoftmaxOp(logits, result))
	}
	return result
}

// NLL computes the negative log-likelihood of int32 class labels under 2D
// log-probabilities, returning a rank-0 scalar loss (mean over the batch).
func (e *Engine[B]) NLL(logProbs, labels *tensor.RawTensor) *tensor.RawTensor {
	result := ops.NLLForward(logProbs, labels, e.Device())
	if e.tape.IsRecording() {
		e.tape.Record(ops.NewNLLOp(logProbs, labels, result))
	}
	return result
}

// CrossEntropy computes the fused log-softmax + NLL loss over raw logits,
// returning a rank-0 scalar. The fused backward pass is the single
// subtraction (softmax - onehot) / batch_size.
func (e *Engine[B]) CrossEntropy(logits, labels *tensor.RawTensor) *tensor.RawTensor {
	result := ops.CrossEntropyForward(logits, labels, e.Device())
	if e.tape.IsRecording() {
		e.tape.Record(ops.NewCrossEntropyOp(logits, labels, result))
	}
	return result
}

// Mean reduces a tensor to the rank-0 mean of all its elements.
func (e *Engine[B]) Mean(t *tensor.RawTensor) *tensor.RawTensor {
	result := ops.MeanForward(t, e.Device())
	if e.tape.IsRecording() {
		e.tape.Record(ops.NewMeanOp(t, result))
	}
	return result
}
