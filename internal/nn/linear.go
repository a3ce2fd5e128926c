package nn

import (
	"fmt"

	"github.com/flint-ml/flint/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the affine transformation y = x @ W + b where:
//   - x is the input with shape [batch_size, in_features]
//   - W is the weight matrix with shape [in_features, out_features]
//   - b is the bias vector with shape [out_features]
//   - y is the output with shape [batch_size, out_features]
//
// Storing W as [in_features, out_features] lets the forward pass multiply
// directly without a transpose; the gradient for the broadcast bias comes
// back summed over the batch dimension.
//
// Weights use Xavier/Glorot initialization, biases start at zero.
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B] // [in_features, out_features]
	bias        *Parameter[B] // [out_features]
	backend     B
}

// NewLinear creates a new Linear layer.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	weightShape := tensor.Shape{inFeatures, outFeatures}
	weight := NewParameter("weight", Xavier(inFeatures, outFeatures, weightShape, backend))

	bias := NewParameter("bias", Zeros(tensor.Shape{outFeatures}, backend))

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}
}

// Forward computes y = x @ W + b.
//
// Input shape: [batch_size, in_features]. Panics with a ShapeError if the
// input is not 2D or its width does not match the layer.
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 2 || inputShape[1] != l.inFeatures {
		panic(&tensor.ShapeError{
			Op:   "linear",
			Want: fmt.Sprintf("[batch_size, %d]", l.inFeatures),
			Got:  fmt.Sprintf("%v", inputShape),
		})
	}

	// [batch, in] @ [in, out] -> [batch, out]
	output := input.MatMul(l.weight.Tensor())

	// Bias is viewed as [1, out] so broadcasting adds it to every row. The
	// reshape is recorded on the tape, so its gradient flows back to the
	// original [out] parameter.
	biasRow := l.bias.Tensor().Reshape(1, l.outFeatures)
	return output.Add(biasRow)
}

// Parameters returns [weight, bias].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// Weight returns the weight parameter, shape [in_features, out_features].
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter, shape [out_features].
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}
