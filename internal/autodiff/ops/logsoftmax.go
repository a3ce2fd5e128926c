package ops

import (
	"fmt"
	"math"

	"github.com/flint-ml/flint/internal/tensor"
)

// LogSoftmaxOp records a row-wise log-softmax over 2D logits.
//
// Forward (per row, with the max subtracted for numerical stability):
//
//	log_softmax(z)_j = z_j - (max(z) + log(Σ_k exp(z_k - max(z))))
//
// Backward:
//
//	∂L/∂z_j = g_j - softmax(z)_j * Σ_k g_k
//
// The softmax probabilities are recovered from the cached output as
// exp(log_softmax(z)), so nothing extra needs to be stored.
type LogSoftmaxOp struct {
	input  *tensor.RawTensor // logits [batch_size, num_classes]
	output *tensor.RawTensor // log-probabilities, same shape
}

// NewLogSoftmaxOp creates a new LogSoftmaxOp.
func NewLogSoftmaxOp(input, output *tensor.RawTensor) *LogSoftmaxOp {
	return &LogSoftmaxOp{
		input:  input,
		output: output,
	}
}

// Backward computes the log-softmax Jacobian-vector product row by row.
func (op *LogSoftmaxOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.input.Shape()
	batchSize, numClasses := shape[0], shape[1]

	grad, err := tensor.NewRaw(shape, op.input.DType(), op.input.Device())
	if err != nil {
		panic(fmt.Sprintf("log-softmax backward: %v", err))
	}

	switch op.input.DType() {
	case tensor.Float32:
		logSoftmaxGradKernel(grad.AsFloat32(), op.output.AsFloat32(), outputGrad.AsFloat32(), batchSize, numClasses)
	case tensor.Float64:
		logSoftmaxGradKernel(grad.AsFloat64(), op.output.AsFloat64(), outputGrad.AsFloat64(), batchSize, numClasses)
	default:
		panic(fmt.Sprintf("log-softmax backward: unsupported dtype %s", op.input.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns the logits tensor.
func (op *LogSoftmaxOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the log-probability tensor.
func (op *LogSoftmaxOp) Output() *tensor.RawTensor {
	return op.output
}

func logSoftmaxGradKernel[T float](dst, logProbs, outGrad []T, batchSize, numClasses int) {
	for b := 0; b < batchSize; b++ {
		row := b * numClasses

		var gradSum float64
		for j := 0; j < numClasses; j++ {
			gradSum += float64(outGrad[row+j])
		}

		for j := 0; j < numClasses; j++ {
			p := math.Exp(float64(logProbs[row+j]))
			dst[row+j] = outGrad[row+j] - T(p*gradSum)
		}
	}
}

// LogSoftmaxForward computes row-wise log-softmax for 2D logits.
func LogSoftmaxForward(logits *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(&tensor.ShapeError{
			Op:   "log-softmax",
			Want: "2D logits [batch_size, num_classes]",
			Got:  fmt.Sprintf("%v", shape),
		})
	}

	result, err := tensor.NewRaw(shape, logits.DType(), device)
	if err != nil {
		panic(fmt.Sprintf("log-softmax: %v", err))
	}

	batchSize, numClasses := shape[0], shape[1]
	switch logits.DType() {
	case tensor.Float32:
		for b := 0; b < batchSize; b++ {
			logSoftmaxRow(result.AsFloat32()[b*numClasses:(b+1)*numClasses], logits.AsFloat32()[b*numClasses:(b+1)*numClasses])
		}
	case tensor.Float64:
		for b := 0; b < batchSize; b++ {
			logSoftmaxRow(result.AsFloat64()[b*numClasses:(b+1)*numClasses], logits.AsFloat64()[b*numClasses:(b+1)*numClasses])
		}
	default:
		panic(fmt.Sprintf("log-softmax: unsupported dtype %s", logits.DType()))
	}

	return result
}

// logSoftmaxRow computes log_softmax(z) = z - (max(z) + log(Σ exp(z - max(z))))
// for one row. Subtracting the row max keeps exp() from overflowing.
func logSoftmaxRow[T float](dst, src []T) {
	maxVal := src[0]
	for _, v := range src[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	var sumExp float64
	for _, v := range src {
		sumExp += math.Exp(float64(v - maxVal))
	}
	logSumExp := float64(maxVal) + math.Log(sumExp)

	for i, v := range src {
		dst[i] = T(float64(v) - logSumExp)
	}
}
