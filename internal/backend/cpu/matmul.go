package cpu

import (
	"fmt"

	"github.com/flint-ml/flint/internal/tensor"
)

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(&tensor.ShapeError{
			Op:   "matmul",
			Want: "two 2D tensors",
			Got:  fmt.Sprintf("%v and %v", aShape, bShape),
		})
	}
	if aShape[1] != bShape[0] {
		panic(&tensor.ShapeError{
			Op:   "matmul",
			Want: fmt.Sprintf("inner dimensions to match, lhs %v", aShape),
			Got:  fmt.Sprintf("rhs %v", bShape),
		})
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("matmul: dtype mismatch: %s vs %s", a.DType(), b.DType()))
	}

	m, k, n := aShape[0], aShape[1], bShape[1]

	result, err := tensor.NewRaw(tensor.Shape{m, n}, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("matmul: failed to create result tensor: %v", err))
	}

	switch a.DType() {
	case tensor.Float32:
		matmulKernel(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n)
	case tensor.Float64:
		matmulKernel(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), m, k, n)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}

	return result
}

// matmulKernel is a straightforward i-k-j loop. The k-outer ordering keeps
// the inner loop walking both b and out sequentially, which is cache-friendly
// enough for the matrix sizes this backend targets.
func matmulKernel[T float](out, a, b []T, m, k, n int) {
	for i := 0; i < m; i++ {
		outRow := out[i*n : (i+1)*n]
		for p := 0; p < k; p++ {
			av := a[i*k+p]
			if av == 0 {
				continue
			}
			bRow := b[p*n : (p+1)*n]
			for j := 0; j < n; j++ {
				outRow[j] += av * bRow[j]
			}
		}
	}
}
