// Package cpu implements the reference CPU backend with plain Go loops.
package cpu

import (
	"fmt"

	"github.com/flint-ml/flint/internal/tensor"
)

// CPUBackend implements tensor operations on the CPU.
//
// Every operation allocates a fresh output tensor; inputs are never modified
// in place. The autodiff engine relies on this to keep recorded graph inputs
// intact for the backward pass.
type CPUBackend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{device: tensor.CPU}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Reshape returns a view of the tensor under a new shape.
// The new shape must describe the same number of elements.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result, err := t.WithShape(newShape)
	if err != nil {
		panic(err)
	}
	return result
}

// Transpose permutes the tensor's dimensions.
// With no axes, all dimensions are reversed.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: axes length %d != ndim %d", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("transpose: invalid axis %d for %dD tensor", ax, ndim))
		}
		if seen[ax] {
			panic(fmt.Sprintf("transpose: duplicate axis %d", ax))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}

	result, err := tensor.NewRaw(newShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	switch t.DType() {
	case tensor.Float32:
		transposeData(result.AsFloat32(), t.AsFloat32(), shape, newShape, axes)
	case tensor.Float64:
		transposeData(result.AsFloat64(), t.AsFloat64(), shape, newShape, axes)
	case tensor.Int32:
		transposeData(result.AsInt32(), t.AsInt32(), shape, newShape, axes)
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", t.DType()))
	}

	return result
}

// transposeData scatters src into dst according to the axis permutation.
func transposeData[T tensor.DType](dst, src []T, srcShape, dstShape tensor.Shape, axes []int) {
	srcStrides := srcShape.ComputeStrides()
	dstStrides := dstShape.ComputeStrides()

	for i := range dst {
		rem := i
		srcIdx := 0
		for d := 0; d < len(dstShape); d++ {
			coord := rem / dstStrides[d]
			rem %= dstStrides[d]
			srcIdx += coord * srcStrides[axes[d]]
		}
		dst[i] = src[srcIdx]
	}
}
