package nn

import (
	"github.com/flint-ml/flint/internal/tensor"
)

// Accuracy computes the fraction of samples whose argmax score matches the
// label. Works on logits and log-probabilities alike since both preserve the
// argmax.
func Accuracy[B tensor.Backend](
	scores *tensor.Tensor[float32, B],
	labels *tensor.Tensor[int32, B],
) float32 {
	shape := scores.Shape()
	batchSize, numClasses := shape[0], shape[1]

	scoresData := scores.Data()
	labelsData := labels.Data()

	correct := 0
	for b := 0; b < batchSize; b++ {
		row := scoresData[b*numClasses : (b+1)*numClasses]
		if argmax(row) == int(labelsData[b]) {
			correct++
		}
	}

	return float32(correct) / float32(batchSize)
}

// argmax returns the index of the maximum value.
func argmax(row []float32) int {
	maxIdx := 0
	maxVal := row[0]
	for i, v := range row[1:] {
		if v > maxVal {
			maxVal = v
			maxIdx = i + 1
		}
	}
	return maxIdx
}
