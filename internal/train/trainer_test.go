package train_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flint-ml/flint/internal/autodiff"
	"github.com/flint-ml/flint/internal/backend/cpu"
	"github.com/flint-ml/flint/internal/nn"
	"github.com/flint-ml/flint/internal/optim"
	"github.com/flint-ml/flint/internal/tensor"
	"github.com/flint-ml/flint/internal/train"
)

type cpuEngine = *autodiff.Engine[*cpu.CPUBackend]

// syntheticDataset builds a separable classification problem: each sample is
// its class prototype plus Gaussian noise. Deterministic for a given seed.
func syntheticDataset(
	t *testing.T,
	engine cpuEngine,
	rng *rand.Rand,
	numSamples, numFeatures, numClasses, batchSize int,
) []*train.Batch[cpuEngine] {
	t.Helper()

	prototypes := make([][]float32, numClasses)
	for c := range prototypes {
		prototypes[c] = make([]float32, numFeatures)
		for i := range prototypes[c] {
			prototypes[c][i] = float32(rng.NormFloat64())
		}
	}

	var batches []*train.Batch[cpuEngine]
	for start := 0; start < numSamples; start += batchSize {
		features := make([]float32, batchSize*numFeatures)
		labels := make([]int32, batchSize)
		for s := 0; s < batchSize; s++ {
			class := (start + s) % numClasses
			labels[s] = int32(class)
			for i := 0; i < numFeatures; i++ {
				features[s*numFeatures+i] = prototypes[class][i] + 0.3*float32(rng.NormFloat64())
			}
		}

		inputs, err := tensor.FromSlice(features, tensor.Shape{batchSize, numFeatures}, engine)
		require.NoError(t, err)
		labelTensor, err := tensor.FromSlice(labels, tensor.Shape{batchSize}, engine)
		require.NoError(t, err)

		batch, err := train.NewBatch(inputs, labelTensor)
		require.NoError(t, err)
		batches = append(batches, batch)
	}
	return batches
}

func newMLP(engine cpuEngine, in, hidden, out int) *nn.Sequential[cpuEngine] {
	return nn.NewSequential[cpuEngine](
		nn.NewLinear(in, hidden, engine),
		nn.NewReLU[cpuEngine](),
		nn.NewLinear(hidden, out, engine),
	)
}

func TestTrainer_LossDecreases(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full-size training run in short mode")
	}

	engine := autodiff.New(cpu.New())
	rng := rand.New(rand.NewSource(42))

	batches := syntheticDataset(t, engine, rng, 1000, 784, 10, 100)
	model := newMLP(engine, 784, 128, 10)
	optimizer := optim.NewSGD(model.Parameters(), 0.1)

	trainer := train.NewTrainer(engine, model, optimizer, train.Config{
		InputWidth: 784,
		NumClasses: 10,
	})

	losses, err := trainer.Fit(batches, 5)
	require.NoError(t, err)
	require.Len(t, losses, 5)

	for i := 1; i < len(losses); i++ {
		assert.Less(t, losses[i], losses[i-1],
			"epoch %d loss %f must be below epoch %d loss %f", i, losses[i], i-1, losses[i-1])
	}

	avgLoss, accuracy, err := trainer.Evaluate(batches)
	require.NoError(t, err)
	assert.Less(t, avgLoss, losses[0])
	assert.Greater(t, accuracy, float32(0.9), "separable data must be mostly learned after 5 epochs")
}

func TestTrainer_OnEpochCallback(t *testing.T) {
	engine := autodiff.New(cpu.New())
	rng := rand.New(rand.NewSource(7))

	batches := syntheticDataset(t, engine, rng, 40, 8, 4, 20)
	model := newMLP(engine, 8, 16, 4)
	optimizer := optim.NewSGD(model.Parameters(), 0.1)

	var epochs []int
	trainer := train.NewTrainer(engine, model, optimizer, train.Config{
		InputWidth: 8,
		NumClasses: 4,
		OnEpoch: func(epoch int, avgLoss float32) {
			epochs = append(epochs, epoch)
			assert.Greater(t, avgLoss, float32(0))
		},
	})

	_, err := trainer.Fit(batches, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, epochs)
}

func TestTrainer_NoBatches(t *testing.T) {
	engine := autodiff.New(cpu.New())
	model := newMLP(engine, 4, 8, 2)
	trainer := train.NewTrainer(engine, model, optim.NewSGD(model.Parameters(), 0.1), train.Config{
		InputWidth: 4,
		NumClasses: 2,
	})

	_, err := trainer.TrainEpoch(nil)
	assert.ErrorIs(t, err, train.ErrNoBatches)

	_, _, err = trainer.Evaluate(nil)
	assert.ErrorIs(t, err, train.ErrNoBatches)
}

func TestTrainer_WidthMismatch(t *testing.T) {
	engine := autodiff.New(cpu.New())
	model := newMLP(engine, 4, 8, 2)
	trainer := train.NewTrainer(engine, model, optim.NewSGD(model.Parameters(), 0.1), train.Config{
		InputWidth: 4,
		NumClasses: 2,
	})

	inputs, err := tensor.FromSlice(make([]float32, 2*3), tensor.Shape{2, 3}, engine)
	require.NoError(t, err)
	labels, err := tensor.FromSlice([]int32{0, 1}, tensor.Shape{2}, engine)
	require.NoError(t, err)
	batch, err := train.NewBatch(inputs, labels)
	require.NoError(t, err)

	_, err = trainer.TrainEpoch([]*train.Batch[cpuEngine]{batch})
	require.Error(t, err)

	var shapeErr *tensor.ShapeError
	assert.ErrorAs(t, err, &shapeErr)
}

func TestTrainer_LabelOutOfRange(t *testing.T) {
	engine := autodiff.New(cpu.New())
	model := newMLP(engine, 4, 8, 2)
	trainer := train.NewTrainer(engine, model, optim.NewSGD(model.Parameters(), 0.1), train.Config{
		InputWidth: 4,
		NumClasses: 2,
	})

	inputs, err := tensor.FromSlice(make([]float32, 2*4), tensor.Shape{2, 4}, engine)
	require.NoError(t, err)
	labels, err := tensor.FromSlice([]int32{0, 2}, tensor.Shape{2}, engine)
	require.NoError(t, err)
	batch, err := train.NewBatch(inputs, labels)
	require.NoError(t, err)

	// Snapshot one weight to show the failed batch changed nothing.
	linear := model.Modules()[0].(*nn.Linear[cpuEngine])
	before := append([]float32(nil), linear.Weight().Tensor().Data()...)

	_, err = trainer.TrainEpoch([]*train.Batch[cpuEngine]{batch})
	require.Error(t, err)

	var rangeErr *nn.LabelRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, 1, rangeErr.Index)
	assert.Equal(t, int32(2), rangeErr.Label)

	assert.Equal(t, before, linear.Weight().Tensor().Data(),
		"validation failures must not move parameters")
}

func TestNewBatch_Validation(t *testing.T) {
	engine := autodiff.New(cpu.New())

	inputs, err := tensor.FromSlice(make([]float32, 6), tensor.Shape{2, 3}, engine)
	require.NoError(t, err)

	// Label count differs from batch size.
	labels, err := tensor.FromSlice([]int32{0, 1, 0}, tensor.Shape{3}, engine)
	require.NoError(t, err)
	_, err = train.NewBatch(inputs, labels)
	var shapeErr *tensor.ShapeError
	require.ErrorAs(t, err, &shapeErr)

	// 1D inputs are rejected.
	flat, err := tensor.FromSlice(make([]float32, 6), tensor.Shape{6}, engine)
	require.NoError(t, err)
	good, err := tensor.FromSlice([]int32{0, 1}, tensor.Shape{2}, engine)
	require.NoError(t, err)
	_, err = train.NewBatch(flat, good)
	require.ErrorAs(t, err, &shapeErr)
}

func TestTrainer_EvaluateWeightsAccuracyBySampleCount(t *testing.T) {
	engine := autodiff.New(cpu.New())

	// One feature, two classes, weights fixed so argmax(logits) is class 0
	// for positive inputs: logits = [x, -x].
	layer := nn.NewLinear(1, 2, engine)
	copy(layer.Weight().Tensor().Data(), []float32{1, -1})

	trainer := train.NewTrainer[*cpu.CPUBackend](engine, layer, optim.NewSGD(layer.Parameters(), 0.1), train.Config{
		InputWidth: 1,
		NumClasses: 2,
	})

	makeBatch := func(features []float32, labels []int32) *train.Batch[cpuEngine] {
		inputs, err := tensor.FromSlice(features, tensor.Shape{len(features), 1}, engine)
		require.NoError(t, err)
		labelTensor, err := tensor.FromSlice(labels, tensor.Shape{len(labels)}, engine)
		require.NoError(t, err)
		batch, err := train.NewBatch(inputs, labelTensor)
		require.NoError(t, err)
		return batch
	}

	// 4 correct predictions in the first batch, 1 wrong in the second.
	// Weighted by sample count the accuracy is 4/5, not the per-batch
	// average (1.0 + 0.0) / 2.
	batches := []*train.Batch[cpuEngine]{
		makeBatch([]float32{1, 2, 3, 4}, []int32{0, 0, 0, 0}),
		makeBatch([]float32{5}, []int32{1}),
	}

	_, accuracy, err := trainer.Evaluate(batches)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, accuracy, 1e-6)
}

func TestTrainer_RejectsNonMatrixInputs(t *testing.T) {
	engine := autodiff.New(cpu.New())
	model := newMLP(engine, 4, 8, 2)
	trainer := train.NewTrainer(engine, model, optim.NewSGD(model.Parameters(), 0.1), train.Config{
		InputWidth: 4,
		NumClasses: 2,
	})

	// A struct literal skips NewBatch's shape checks; validation must still
	// return a ShapeError instead of panicking on the missing dimension.
	flat, err := tensor.FromSlice(make([]float32, 4), tensor.Shape{4}, engine)
	require.NoError(t, err)
	labels, err := tensor.FromSlice([]int32{0}, tensor.Shape{1}, engine)
	require.NoError(t, err)
	batch := &train.Batch[cpuEngine]{Inputs: flat, Labels: labels}

	var shapeErr *tensor.ShapeError

	_, err = trainer.TrainEpoch([]*train.Batch[cpuEngine]{batch})
	require.ErrorAs(t, err, &shapeErr)

	_, _, err = trainer.Evaluate([]*train.Batch[cpuEngine]{batch})
	require.ErrorAs(t, err, &shapeErr)
}

func TestIsExploding(t *testing.T) {
	assert.False(t, train.IsExploding(2.3))
	assert.False(t, train.IsExploding(0))
	assert.True(t, train.IsExploding(float32(math.NaN())))
	assert.True(t, train.IsExploding(float32(math.Inf(1))))
	assert.True(t, train.IsExploding(float32(math.Inf(-1))))
}

func TestTrainer_EvaluateDoesNotRecord(t *testing.T) {
	engine := autodiff.New(cpu.New())
	rng := rand.New(rand.NewSource(11))

	batches := syntheticDataset(t, engine, rng, 20, 4, 2, 10)
	model := newMLP(engine, 4, 8, 2)
	trainer := train.NewTrainer(engine, model, optim.NewSGD(model.Parameters(), 0.1), train.Config{
		InputWidth: 4,
		NumClasses: 2,
	})

	_, _, err := trainer.Evaluate(batches)
	require.NoError(t, err)
	assert.Equal(t, 0, engine.Tape().NumOps(), "evaluation must not record operations")
}
