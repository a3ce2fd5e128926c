package nn

import (
	"github.com/flint-ml/flint/internal/tensor"
)

// Parameter is a trainable tensor in a neural network, typically a layer's
// weight or bias.
//
// The wrapped tensor is marked for gradient accumulation: contributions from
// backward passes sum into its gradient buffer until ZeroGrad is called.
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[float32, B]
}

// NewParameter creates a new trainable parameter around an initialized
// tensor. The tensor is marked to accumulate gradients.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t.RequireGrad(),
	}
}

// Name returns the parameter name, e.g. "weight".
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// Grad returns the accumulated gradient, or nil if no backward pass has
// contributed since the last ZeroGrad.
func (p *Parameter[B]) Grad() *tensor.Tensor[float32, B] {
	return p.tensor.Grad()
}

// CheckedGrad returns the accumulated gradient, or a GradientNotAvailableError
// if none exists. Use it where silently reading a missing gradient would hide
// a wiring bug, e.g. gradient inspection in tests and tooling.
func (p *Parameter[B]) CheckedGrad() (*tensor.Tensor[float32, B], error) {
	grad := p.tensor.Grad()
	if grad == nil {
		return nil, &GradientNotAvailableError{Param: p.name}
	}
	return grad, nil
}

// ZeroGrad discards the accumulated gradient. Called by the optimizer before
// each training step; skipping it sums gradients across unrelated batches.
func (p *Parameter[B]) ZeroGrad() {
	p.tensor.ZeroGrad()
}

// AccumulateGrads folds raw gradients from a backward pass into the matching
// parameters' gradient buffers. Parameters absent from the map (no path to
// the loss) are left untouched; their gradient stays nil until some backward
// pass reaches them.
func AccumulateGrads[B tensor.Backend](params []*Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, p := range params {
		if grad, ok := grads[p.tensor.Raw()]; ok {
			p.tensor.AccumulateGrad(grad)
		}
	}
}
