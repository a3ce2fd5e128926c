// Copyright 2025 Flint ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// The Engine wraps any backend and records operations on a gradient tape
// during the forward pass; Backward walks the tape in reverse to compute
// gradients.
//
// Example:
//
//	engine := autodiff.New(cpu.New())
//	engine.Tape().StartRecording()
//
//	x, _ := tensor.FromSlice([]float32{2}, tensor.Shape{1, 1}, engine)
//	y := x.Mul(x)
//	loss := tensor.New[float32](engine.Mean(y.Raw()), engine)
//
//	grads, err := autodiff.Backward(loss, engine)
package autodiff

import (
	"github.com/flint-ml/flint/internal/autodiff"
	"github.com/flint-ml/flint/internal/tensor"
)

// Engine is the autodiff-enabled backend.
type Engine[B tensor.Backend] = autodiff.Engine[B]

// New creates a new Engine wrapping the given backend.
func New[B tensor.Backend](backend B) *Engine[B] {
	return autodiff.New(backend)
}

// Tape records operations for reverse-mode differentiation.
type Tape = autodiff.Tape

// NewTape creates a new, non-recording tape.
func NewTape() *Tape {
	return autodiff.NewTape()
}

// Backward computes gradients for every tensor reachable from the rank-0
// scalar loss. Returns a map keyed by raw tensor identity.
func Backward[T tensor.DType, B tensor.Backend](loss *tensor.Tensor[T, *Engine[B]], engine *Engine[B]) (map[*tensor.RawTensor]*tensor.RawTensor, error) {
	return autodiff.Backward(loss, engine)
}
