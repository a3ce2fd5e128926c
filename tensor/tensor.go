// Copyright 2025 Flint ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor operations in the Flint
// ML framework.
//
// The package defines the core types for type-safe tensor computation:
//   - Tensor[T, B]: high-level generic tensor
//   - RawTensor: dtype-erased storage for backends and the autodiff engine
//   - Backend: interface for compute implementations
//   - Shape, DataType, Device: core type definitions
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)
package tensor

import (
	"github.com/flint-ml/flint/internal/tensor"
)

// DType is a constraint for tensor element types.
// Supported types: float32, float64, int32.
type DType = tensor.DType

// DataType identifies the runtime data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
)

// Device identifies where tensor data resides.
type Device = tensor.Device

// CPU is the only supported device.
const CPU Device = tensor.CPU

// Shape represents the dimensions of a tensor. An empty Shape{} is a rank-0
// scalar with exactly one element.
type Shape = tensor.Shape

// Tensor is a generic type-safe tensor.
//
// T is the element type and B the backend. Tensors built on an
// autodiff.Engine record their operations for the backward pass.
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// ShapeError reports an operation applied to tensors of incompatible shapes.
type ShapeError = tensor.ShapeError

// Creation functions

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T, B](shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T, B](shape, b)
}

// Full creates a tensor filled with a specific value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full[T, B](shape, value, b)
}

// Scalar creates a rank-0 tensor holding a single value.
func Scalar[T DType, B Backend](value T, b B) *Tensor[T, B] {
	return tensor.Scalar[T, B](value, b)
}

// Randn creates a tensor with values from the standard normal distribution.
func Randn[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Randn[T, B](shape, b)
}

// RandnFrom creates a normally distributed tensor from an explicit source
// such as a seeded *rand.Rand, for reproducible initialization.
func RandnFrom[T DType, B Backend](rng interface{ NormFloat64() float64 }, shape Shape, b B) *Tensor[T, B] {
	return tensor.RandnFrom[T, B](rng, shape, b)
}

// Rand creates a tensor with values uniform in [0, 1).
func Rand[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Rand[T, B](shape, b)
}

// Arange creates a 1D tensor with values from start to end (exclusive).
func Arange[T DType, B Backend](start, end T, b B) *Tensor[T, B] {
	return tensor.Arange[T, B](start, end, b)
}

// FromSlice creates a tensor from a Go slice. The slice is copied.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice[T, B](data, shape, b)
}

// New creates a tensor from a raw tensor. Low-level; most users should use
// the creation functions above.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return tensor.New[T, B](raw, b)
}

// NewRaw creates a raw tensor with the given shape, dtype, and device.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// BroadcastShapes computes the broadcast shape of two shapes under NumPy
// rules. The bool reports whether either operand actually needs broadcasting.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
