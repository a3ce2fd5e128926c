package nn

import (
	"github.com/flint-ml/flint/internal/tensor"
)

// Sequential chains modules, feeding each output into the next module.
//
// Example:
//
//	model := nn.NewSequential[B](
//	    nn.NewLinear(784, 128, backend),
//	    nn.NewReLU[B](),
//	    nn.NewLinear(128, 10, backend),
//	    nn.NewLogSoftmax[B](),
//	)
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a sequential container from the given modules.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{modules: modules}
}

// Forward passes the input through all modules in order.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := input
	for _, m := range s.modules {
		output = m.Forward(output)
	}
	return output
}

// Parameters returns the parameters of all contained modules in order.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, m := range s.modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

// Modules returns the contained modules.
func (s *Sequential[B]) Modules() []Module[B] {
	return s.modules
}
