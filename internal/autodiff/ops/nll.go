package ops

import (
	"fmt"

	"github.com/flint-ml/flint/internal/tensor"
)

// NLLOp records the negative log-likelihood loss over log-probabilities.
//
// Forward:
//
//	Loss = -mean(logProbs[b, labels[b]])
//
// Backward:
//
//	∂L/∂logProbs[b,j] = -1/batch_size  if j == labels[b], else 0
//
// Labels are integer class indices and receive no gradient.
type NLLOp struct {
	logProbs *tensor.RawTensor // [batch_size, num_classes]
	labels   *tensor.RawTensor // [batch_size], int32
	output   *tensor.RawTensor // rank-0 scalar loss
}

// NewNLLOp creates a new NLLOp.
func NewNLLOp(logProbs, labels, output *tensor.RawTensor) *NLLOp {
	return &NLLOp{
		logProbs: logProbs,
		labels:   labels,
		output:   output,
	}
}

// Backward scatters -gradScale/batch_size into the label position of each row.
func (op *NLLOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.logProbs.Shape()
	batchSize, numClasses := shape[0], shape[1]
	labels := op.labels.AsInt32()
	gradScale := scalarValue(outputGrad)

	grad, err := tensor.NewRaw(shape, op.logProbs.DType(), op.logProbs.Device())
	if err != nil {
		panic(fmt.Sprintf("nll backward: %v", err))
	}

	switch op.logProbs.DType() {
	case tensor.Float32:
		data := grad.AsFloat32()
		perSample := float32(gradScale) / float32(batchSize)
		for b := 0; b < batchSize; b++ {
			data[b*numClasses+int(labels[b])] = -perSample
		}
	case tensor.Float64:
		data := grad.AsFloat64()
		perSample := gradScale / float64(batchSize)
		for b := 0; b < batchSize; b++ {
			data[b*numClasses+int(labels[b])] = -perSample
		}
	default:
		panic(fmt.Sprintf("nll backward: unsupported dtype %s", op.logProbs.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns the log-probability tensor. Labels are not differentiable.
func (op *NLLOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logProbs}
}

// Output returns the scalar loss.
func (op *NLLOp) Output() *tensor.RawTensor {
	return op.output
}

// NLLForward computes -mean(logProbs[b, labels[b]]) as a rank-0 scalar.
// Panics if a label is outside [0, num_classes); callers that need a
// recoverable error validate labels first.
func NLLForward(logProbs, labels *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	shape := logProbs.Shape()
	if len(shape) != 2 {
		panic(&tensor.ShapeError{
			Op:   "nll",
			Want: "2D log-probabilities [batch_size, num_classes]",
			Got:  fmt.Sprintf("%v", shape),
		})
	}
	labelsShape := labels.Shape()
	if len(labelsShape) != 1 || labelsShape[0] != shape[0] {
		panic(&tensor.ShapeError{
			Op:   "nll",
			Want: fmt.Sprintf("1D labels of length %d", shape[0]),
			Got:  fmt.Sprintf("%v", labelsShape),
		})
	}

	batchSize, numClasses := shape[0], shape[1]
	labelData := labels.AsInt32()

	output, err := tensor.NewRaw(tensor.Shape{}, logProbs.DType(), device)
	if err != nil {
		panic(fmt.Sprintf("nll: %v", err))
	}

	var total float64
	for b := 0; b < batchSize; b++ {
		label := int(labelData[b])
		if label < 0 || label >= numClasses {
			panic(fmt.Sprintf("nll: label %d out of range [0, %d) at index %d", label, numClasses, b))
		}
		switch logProbs.DType() {
		case tensor.Float32:
			total -= float64(logProbs.AsFloat32()[b*numClasses+label])
		case tensor.Float64:
			total -= logProbs.AsFloat64()[b*numClasses+label]
		default:
			panic(fmt.Sprintf("nll: unsupported dtype %s", logProbs.DType()))
		}
	}

	switch logProbs.DType() {
	case tensor.Float32:
		output.AsFloat32()[0] = float32(total / float64(batchSize))
	case tensor.Float64:
		output.AsFloat64()[0] = total / float64(batchSize)
	}

	return output
}
