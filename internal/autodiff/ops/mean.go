package ops

import (
	"fmt"

	"github.com/flint-ml/flint/internal/tensor"
)

// MeanOp records a full reduction to the mean of all elements.
//
// Backward: every input element contributed 1/n, so the gradient is the
// scalar output gradient spread uniformly as gradScale/n.
type MeanOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor // rank-0 scalar
}

// NewMeanOp creates a new MeanOp.
func NewMeanOp(input, output *tensor.RawTensor) *MeanOp {
	return &MeanOp{
		input:  input,
		output: output,
	}
}

// Backward fills an input-shaped tensor with gradScale/n.
func (op *MeanOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	n := op.input.NumElements()
	gradScale := scalarValue(outputGrad)

	grad, err := tensor.NewRaw(op.input.Shape(), op.input.DType(), op.input.Device())
	if err != nil {
		panic(fmt.Sprintf("mean backward: %v", err))
	}

	switch op.input.DType() {
	case tensor.Float32:
		data := grad.AsFloat32()
		v := float32(gradScale) / float32(n)
		for i := range data {
			data[i] = v
		}
	case tensor.Float64:
		data := grad.AsFloat64()
		v := gradScale / float64(n)
		for i := range data {
			data[i] = v
		}
	default:
		panic(fmt.Sprintf("mean backward: unsupported dtype %s", op.input.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor.
func (op *MeanOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the scalar mean.
func (op *MeanOp) Output() *tensor.RawTensor {
	return op.output
}

// MeanForward computes the mean of all elements as a rank-0 scalar.
func MeanForward(t *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	output, err := tensor.NewRaw(tensor.Shape{}, t.DType(), device)
	if err != nil {
		panic(fmt.Sprintf("mean: %v", err))
	}

	n := t.NumElements()
	switch t.DType() {
	case tensor.Float32:
		var sum float64
		for _, v := range t.AsFloat32() {
			sum += float64(v)
		}
		output.AsFloat32()[0] = float32(sum / float64(n))
	case tensor.Float64:
		var sum float64
		for _, v := range t.AsFloat64() {
			sum += v
		}
		output.AsFloat64()[0] = sum / float64(n)
	default:
		panic(fmt.Sprintf("mean: unsupported dtype %s", t.DType()))
	}

	return output
}
