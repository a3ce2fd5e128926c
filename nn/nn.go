// Copyright 2025 Flint ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network building blocks: layers, activations,
// losses, and parameter management.
//
// Example:
//
//	engine := autodiff.New(cpu.New())
//	model := nn.NewSequential[*autodiff.Engine[*cpu.Backend]](
//	    nn.NewLinear(784, 128, engine),
//	    nn.NewReLU[*autodiff.Engine[*cpu.Backend]](),
//	    nn.NewLinear(128, 10, engine),
//	)
package nn

import (
	"github.com/flint-ml/flint/internal/nn"
	"github.com/flint-ml/flint/internal/tensor"
)

// Module is the base interface for all neural network components.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter is a trainable tensor with additive gradient accumulation.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a trainable parameter around an initialized tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// AccumulateGrads folds raw gradients from a backward pass into the matching
// parameters' gradient buffers.
func AccumulateGrads[B tensor.Backend](params []*Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) {
	nn.AccumulateGrads(params, grads)
}

// Linear is a fully connected layer computing y = x @ W + b.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a Linear layer with Xavier-initialized weights and zero
// biases.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// ReLU is the rectified linear unit activation module.
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// LogSoftmax applies row-wise log-softmax over 2D inputs.
type LogSoftmax[B tensor.Backend] = nn.LogSoftmax[B]

// NewLogSoftmax creates a LogSoftmax module.
func NewLogSoftmax[B tensor.Backend]() *LogSoftmax[B] {
	return nn.NewLogSoftmax[B]()
}

// NLLLoss is the negative log-likelihood loss over log-probabilities.
type NLLLoss[B tensor.Backend] = nn.NLLLoss[B]

// NewNLLLoss creates an NLL loss function.
func NewNLLLoss[B tensor.Backend](backend B) *NLLLoss[B] {
	return nn.NewNLLLoss(backend)
}

// CrossEntropyLoss is the fused log-softmax + NLL loss over raw logits.
type CrossEntropyLoss[B tensor.Backend] = nn.CrossEntropyLoss[B]

// NewCrossEntropyLoss creates a cross-entropy loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return nn.NewCrossEntropyLoss(backend)
}

// Sequential chains modules, feeding each output into the next.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a sequential container from the given modules.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// LabelRangeError reports a class label outside [0, NumClasses).
type LabelRangeError = nn.LabelRangeError

// GradientNotAvailableError reports a gradient read before any backward pass.
type GradientNotAvailableError = nn.GradientNotAvailableError

// Xavier initializes a weight tensor with the Glorot uniform distribution.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Xavier(fanIn, fanOut, shape, backend)
}

// Accuracy computes the fraction of samples whose argmax score matches the
// label.
func Accuracy[B tensor.Backend](scores *tensor.Tensor[float32, B], labels *tensor.Tensor[int32, B]) float32 {
	return nn.Accuracy(scores, labels)
}
