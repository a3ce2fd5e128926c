// Copyright 2025 Flint ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides gradient-based optimizers.
package optim

import (
	"github.com/flint-ml/flint/internal/nn"
	"github.com/flint-ml/flint/internal/optim"
	"github.com/flint-ml/flint/internal/tensor"
)

// Optimizer is the common interface for all optimizers.
type Optimizer = optim.Optimizer

// SGD is stochastic gradient descent with optional momentum.
type SGD[B tensor.Backend] = optim.SGD[B]

// NewSGD creates a plain SGD optimizer.
//
// Example:
//
//	optimizer := optim.NewSGD(model.Parameters(), 0.01)
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], lr float32) *SGD[B] {
	return optim.NewSGD(params, lr)
}

// NewSGDWithMomentum creates an SGD optimizer with classical momentum.
func NewSGDWithMomentum[B tensor.Backend](params []*nn.Parameter[B], lr, momentum float32) *SGD[B] {
	return optim.NewSGDWithMomentum(params, lr, momentum)
}
