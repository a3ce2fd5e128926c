package cpu

import (
	"fmt"

	"github.com/flint-ml/flint/internal/tensor"
)

// binKind identifies one of the element-wise binary operations.
type binKind int

const (
	kindAdd binKind = iota
	kindSub
	kindMul
	kindDiv
)

func (k binKind) String() string {
	switch k {
	case kindAdd:
		return "add"
	case kindSub:
		return "sub"
	case kindMul:
		return "mul"
	case kindDiv:
		return "div"
	default:
		return "unknown"
	}
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp(kindAdd, a, b)
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp(kindSub, a, b)
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp(kindMul, a, b)
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp(kindDiv, a, b)
}

func (cpu *CPUBackend) binaryOp(kind binKind, a, b *tensor.RawTensor) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", kind, err))
	}

	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", kind, err))
	}

	switch a.DType() {
	case tensor.Float32:
		if needsBroadcast {
			binaryBroadcast(kind, result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), outShape, a.Shape(), b.Shape())
		} else {
			binaryLoop(kind, result.AsFloat32(), a.AsFloat32(), b.AsFloat32())
		}
	case tensor.Float64:
		if needsBroadcast {
			binaryBroadcast(kind, result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), outShape, a.Shape(), b.Shape())
		} else {
			binaryLoop(kind, result.AsFloat64(), a.AsFloat64(), b.AsFloat64())
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", kind, a.DType()))
	}

	return result
}

// float is the element type constraint for arithmetic kernels.
type float interface {
	~float32 | ~float64
}

func apply[T float](kind binKind, x, y T) T {
	switch kind {
	case kindAdd:
		return x + y
	case kindSub:
		return x - y
	case kindMul:
		return x * y
	case kindDiv:
		return x / y
	default:
		panic("unknown binary op")
	}
}

// binaryLoop is the fast path for operands of identical shape.
func binaryLoop[T float](kind binKind, out, a, b []T) {
	for i := range out {
		out[i] = apply(kind, a[i], b[i])
	}
}

// binaryBroadcast walks the output tensor and maps every element back to its
// source element in each (possibly smaller) operand.
func binaryBroadcast[T float](kind binKind, out, a, b []T, outShape, aShape, bShape tensor.Shape) {
	outStrides := outShape.ComputeStrides()
	aStrides := aShape.ComputeStrides()
	bStrides := bShape.ComputeStrides()

	for i := range out {
		aIdx := broadcastIndex(i, outShape, aShape, outStrides, aStrides)
		bIdx := broadcastIndex(i, outShape, bShape, outStrides, bStrides)
		out[i] = apply(kind, a[aIdx], b[bIdx])
	}
}

// broadcastIndex maps a flat index into the output tensor to the flat index
// of the contributing element in a source tensor, aligning shapes from the
// right per the broadcasting rules.
func broadcastIndex(flat int, outShape, srcShape tensor.Shape, outStrides, srcStrides []int) int {
	offset := len(outShape) - len(srcShape)
	idx := 0
	rem := flat
	for d := 0; d < len(outShape); d++ {
		coord := rem / outStrides[d]
		rem %= outStrides[d]

		sd := d - offset
		if sd >= 0 {
			if srcShape[sd] == 1 {
				coord = 0
			}
			idx += coord * srcStrides[sd]
		}
	}
	return idx
}
