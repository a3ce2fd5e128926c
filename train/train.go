// Copyright 2025 Flint ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train provides the training loop for classification models.
//
// Example:
//
//	engine := autodiff.New(cpu.New())
//	model := nn.NewSequential[*autodiff.Engine[*cpu.Backend]](
//	    nn.NewLinear(784, 128, engine),
//	    nn.NewReLU[*autodiff.Engine[*cpu.Backend]](),
//	    nn.NewLinear(128, 10, engine),
//	)
//	optimizer := optim.NewSGD(model.Parameters(), 0.1)
//
//	trainer := train.NewTrainer(engine, model, optimizer, train.Config{
//	    InputWidth: 784,
//	    NumClasses: 10,
//	})
//	losses, err := trainer.Fit(batches, 5)
package train

import (
	"github.com/flint-ml/flint/internal/autodiff"
	"github.com/flint-ml/flint/internal/nn"
	"github.com/flint-ml/flint/internal/optim"
	"github.com/flint-ml/flint/internal/tensor"
	"github.com/flint-ml/flint/internal/train"
)

// ErrNoBatches is returned when an epoch is started with no data.
var ErrNoBatches = train.ErrNoBatches

// Batch pairs a 2D float32 input matrix with its int32 class labels.
type Batch[B tensor.Backend] = train.Batch[B]

// NewBatch validates the inputs/labels pairing and returns a Batch.
func NewBatch[B tensor.Backend](
	inputs *tensor.Tensor[float32, B],
	labels *tensor.Tensor[int32, B],
) (*Batch[B], error) {
	return train.NewBatch(inputs, labels)
}

// Config holds the data contract the trainer enforces on every batch.
type Config = train.Config

// Trainer drives the forward/backward/step cycle of a classification model.
type Trainer[B tensor.Backend] = train.Trainer[B]

// NewTrainer creates a Trainer over a model built on the given engine.
func NewTrainer[B tensor.Backend](
	engine *autodiff.Engine[B],
	model nn.Module[*autodiff.Engine[B]],
	optimizer optim.Optimizer,
	config Config,
) *Trainer[B] {
	return train.NewTrainer(engine, model, optimizer, config)
}

// IsExploding reports whether a loss value has diverged to NaN or infinity.
func IsExploding(loss float32) bool {
	return train.IsExploding(loss)
}
