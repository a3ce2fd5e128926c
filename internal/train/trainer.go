package train

import (
	"errors"
	"fmt"
	"math"

	"github.com/flint-ml/flint/internal/autodiff"
	"github.com/flint-ml/flint/internal/nn"
	"github.com/flint-ml/flint/internal/optim"
	"github.com/flint-ml/flint/internal/tensor"
)

// ErrNoBatches is returned when an epoch is started with no data.
var ErrNoBatches = errors.New("train: no batches")

// Config holds the data contract the trainer enforces on every batch.
type Config struct {
	// InputWidth is the expected number of features per sample.
	InputWidth int

	// NumClasses is the number of target classes; every label must be in
	// [0, NumClasses).
	NumClasses int

	// OnEpoch, if set, is called after each epoch with the epoch index
	// (0-based) and the average loss over the epoch's batches.
	OnEpoch func(epoch int, avgLoss float32)
}

// Trainer drives the forward/backward/step cycle of a classification model.
//
// Each batch runs through a fixed sequence: clear gradients, validate the
// batch against the Config, forward pass, loss, backward pass, optimizer
// step. Validation happens before the forward pass, so a bad batch fails the
// epoch without touching parameters or gradient state.
type Trainer[B tensor.Backend] struct {
	engine    *autodiff.Engine[B]
	model     nn.Module[*autodiff.Engine[B]]
	optimizer optim.Optimizer
	criterion *nn.CrossEntropyLoss[*autodiff.Engine[B]]
	config    Config
}

// NewTrainer creates a Trainer. The model's tensors must be built on the
// given engine so its operations are recorded for the backward pass.
func NewTrainer[B tensor.Backend](
	engine *autodiff.Engine[B],
	model nn.Module[*autodiff.Engine[B]],
	optimizer optim.Optimizer,
	config Config,
) *Trainer[B] {
	return &Trainer[B]{
		engine:    engine,
		model:     model,
		optimizer: optimizer,
		criterion: nn.NewCrossEntropyLoss[*autodiff.Engine[B]](engine),
		config:    config,
	}
}

// TrainEpoch runs one pass over the batches and returns the average loss.
//
// A validation failure (wrong feature width, label out of range) aborts the
// epoch and returns a ShapeError or LabelRangeError. Batches processed
// before the failure keep their updates.
func (t *Trainer[B]) TrainEpoch(batches []*Batch[*autodiff.Engine[B]]) (float32, error) {
	if len(batches) == 0 {
		return 0, ErrNoBatches
	}

	tape := t.engine.Tape()
	var totalLoss float64

	for _, batch := range batches {
		if err := t.validate(batch); err != nil {
			return 0, err
		}

		t.optimizer.ZeroGrad()
		tape.Clear()
		tape.StartRecording()

		logits := t.model.Forward(batch.Inputs)
		loss, err := t.criterion.Forward(logits, batch.Labels)
		if err != nil {
			tape.StopRecording()
			return 0, err
		}

		grads, err := autodiff.Backward(loss, t.engine)
		if err != nil {
			tape.StopRecording()
			return 0, err
		}
		nn.AccumulateGrads(t.model.Parameters(), grads)

		t.optimizer.Step()

		tape.StopRecording()
		tape.Clear()

		totalLoss += float64(loss.Item())
	}

	return float32(totalLoss / float64(len(batches))), nil
}

// Fit runs the given number of epochs and returns the per-epoch average
// losses. Stops at the first failing epoch.
func (t *Trainer[B]) Fit(batches []*Batch[*autodiff.Engine[B]], epochs int) ([]float32, error) {
	losses := make([]float32, 0, epochs)

	for epoch := 0; epoch < epochs; epoch++ {
		avgLoss, err := t.TrainEpoch(batches)
		if err != nil {
			return losses, err
		}
		losses = append(losses, avgLoss)

		if t.config.OnEpoch != nil {
			t.config.OnEpoch(epoch, avgLoss)
		}
	}

	return losses, nil
}

// Evaluate computes the average loss and accuracy over the batches without
// recording operations or touching gradients.
func (t *Trainer[B]) Evaluate(batches []*Batch[*autodiff.Engine[B]]) (avgLoss, accuracy float32, err error) {
	if len(batches) == 0 {
		return 0, 0, ErrNoBatches
	}

	defer t.engine.NoGrad()()

	var totalLoss, totalCorrect float64
	var totalSamples int
	for _, batch := range batches {
		if err := t.validate(batch); err != nil {
			return 0, 0, err
		}

		logits := t.model.Forward(batch.Inputs)
		loss, err := t.criterion.Forward(logits, batch.Labels)
		if err != nil {
			return 0, 0, err
		}

		totalLoss += float64(loss.Item())
		// Accuracy is weighted by batch size so a short final batch does not
		// skew the average.
		totalCorrect += float64(nn.Accuracy(logits, batch.Labels)) * float64(batch.Size())
		totalSamples += batch.Size()
	}

	avgLoss = float32(totalLoss / float64(len(batches)))
	accuracy = float32(totalCorrect / float64(totalSamples))
	return avgLoss, accuracy, nil
}

// IsExploding reports whether a loss value has diverged to NaN or infinity.
// The trainer does not intercept diverged losses; callers that want to abort
// early check per epoch.
func IsExploding(loss float32) bool {
	l := float64(loss)
	return math.IsNaN(l) || math.IsInf(l, 0)
}

// validate enforces the Config contract on one batch before it reaches the
// model.
func (t *Trainer[B]) validate(batch *Batch[*autodiff.Engine[B]]) error {
	// Rank is checked here too: a Batch built as a struct literal bypasses
	// NewBatch's validation.
	inputsShape := batch.Inputs.Shape()
	if len(inputsShape) != 2 || inputsShape[1] != t.config.InputWidth {
		return &tensor.ShapeError{
			Op:   "train",
			Want: fmt.Sprintf("[batch_size, %d]", t.config.InputWidth),
			Got:  fmt.Sprintf("%v", inputsShape),
		}
	}

	for i, label := range batch.Labels.Data() {
		if label < 0 || int(label) >= t.config.NumClasses {
			return &nn.LabelRangeError{Index: i, Label: label, NumClasses: t.config.NumClasses}
		}
	}

	return nil
}
