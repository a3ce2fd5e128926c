package optim

import (
	"github.com/flint-ml/flint/internal/nn"
	"github.com/flint-ml/flint/internal/tensor"
)

// SGD implements stochastic gradient descent, optionally with classical
// momentum:
//
//	v = momentum * v + grad
//	p = p - lr * v
//
// With momentum 0 this reduces to the plain update p = p - lr * grad.
type SGD[B tensor.Backend] struct {
	params   []*nn.Parameter[B]
	lr       float32
	momentum float32
	velocity [][]float32 // one buffer per parameter, allocated lazily
}

// NewSGD creates a plain SGD optimizer over the given parameters.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], lr float32) *SGD[B] {
	return &SGD[B]{
		params: params,
		lr:     lr,
	}
}

// NewSGDWithMomentum creates an SGD optimizer with classical momentum.
func NewSGDWithMomentum[B tensor.Backend](params []*nn.Parameter[B], lr, momentum float32) *SGD[B] {
	return &SGD[B]{
		params:   params,
		lr:       lr,
		momentum: momentum,
	}
}

// Step applies one update to every parameter that has a gradient.
// Parameters without a gradient are skipped silently: a model whose layer
// never participated in the loss simply does not move.
func (s *SGD[B]) Step() {
	if s.momentum != 0 && s.velocity == nil {
		s.velocity = make([][]float32, len(s.params))
	}

	for i, p := range s.params {
		grad := p.Grad()
		if grad == nil {
			continue
		}

		paramData := p.Tensor().Data()
		gradData := grad.Data()

		if s.momentum == 0 {
			for j := range paramData {
				paramData[j] -= s.lr * gradData[j]
			}
			continue
		}

		if s.velocity[i] == nil {
			s.velocity[i] = make([]float32, len(paramData))
		}
		v := s.velocity[i]
		for j := range paramData {
			v[j] = s.momentum*v[j] + gradData[j]
			paramData[j] -= s.lr * v[j]
		}
	}
}

// ZeroGrad clears the gradients of all parameters.
func (s *SGD[B]) ZeroGrad() {
	for _, p := range s.params {
		p.ZeroGrad()
	}
}

// LR returns the learning rate.
func (s *SGD[B]) LR() float32 {
	return s.lr
}

// SetLR updates the learning rate, e.g. for a decay schedule.
func (s *SGD[B]) SetLR(lr float32) {
	s.lr = lr
}

// Params returns the parameters this optimizer manages.
func (s *SGD[B]) Params() []*nn.Parameter[B] {
	return s.params
}
