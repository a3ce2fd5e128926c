package ops

import (
	"fmt"
	"math"

	"github.com/flint-ml/flint/internal/tensor"
)

// CrossEntropyOp records the fused cross-entropy loss over raw logits.
//
// Forward:
//
//	Loss = mean(-log_softmax(logits)[b, labels[b]])
//
// Backward:
//
//	∂L/∂logits[b,j] = (softmax(logits[b])_j - onehot(labels[b])_j) / batch_size
//
// Fusing log-softmax and NLL keeps the forward pass numerically stable and
// collapses the backward pass to a single subtraction, which is why the fused
// form is preferred over composing the two ops when training.
type CrossEntropyOp struct {
	logits *tensor.RawTensor // [batch_size, num_classes]
	labels *tensor.RawTensor // [batch_size], int32
	output *tensor.RawTensor // rank-0 scalar loss
}

// NewCrossEntropyOp creates a new CrossEntropyOp.
func NewCrossEntropyOp(logits, labels, output *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{
		logits: logits,
		labels: labels,
		output: output,
	}
}

// Backward computes (softmax - onehot) / batch_size, scaled by the upstream
// gradient (usually 1 for a loss root).
func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.logits.Shape()
	batchSize, numClasses := shape[0], shape[1]
	labels := op.labels.AsInt32()
	gradScale := scalarValue(outputGrad)

	grad, err := tensor.NewRaw(shape, op.logits.DType(), op.logits.Device())
	if err != nil {
		panic(fmt.Sprintf("cross-entropy backward: %v", err))
	}

	switch op.logits.DType() {
	case tensor.Float32:
		crossEntropyGradKernel(grad.AsFloat32(), op.logits.AsFloat32(), labels, gradScale, batchSize, numClasses)
	case tensor.Float64:
		crossEntropyGradKernel(grad.AsFloat64(), op.logits.AsFloat64(), labels, gradScale, batchSize, numClasses)
	default:
		panic(fmt.Sprintf("cross-entropy backward: unsupported dtype %s", op.logits.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns the logits tensor. Labels are not differentiable.
func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits}
}

// Output returns the scalar loss.
func (op *CrossEntropyOp) Output() *tensor.RawTensor {
	return op.output
}

func crossEntropyGradKernel[T float](dst, logits []T, labels []int32, gradScale float64, batchSize, numClasses int) {
	for b := 0; b < batchSize; b++ {
		row := logits[b*numClasses : (b+1)*numClasses]
		probs := softmaxRow(row)

		label := int(labels[b])
		for j := 0; j < numClasses; j++ {
			p := probs[j]
			if j == label {
				p -= 1.0
			}
			dst[b*numClasses+j] = T(gradScale * p / float64(batchSize))
		}
	}
}

// softmaxRow computes max-shifted softmax probabilities for one row in
// float64 regardless of the input dtype.
func softmaxRow[T float](row []T) []float64 {
	maxVal := row[0]
	for _, v := range row[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	probs := make([]float64, len(row))
	var sumExp float64
	for i, v := range row {
		probs[i] = math.Exp(float64(v - maxVal))
		sumExp += probs[i]
	}
	for i := range probs {
		probs[i] /= sumExp
	}
	return probs
}

// CrossEntropyForward computes the fused loss as a rank-0 scalar.
// Numerically it is log-sum-exp minus the true-class logit, averaged over
// the batch, which is identical to NLL over log-softmax outputs.
func CrossEntropyForward(logits, labels *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	logProbs := LogSoftmaxForward(logits, device)
	return NLLForward(logProbs, labels, device)
}
