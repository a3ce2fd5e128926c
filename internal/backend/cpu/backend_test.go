package cpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flint-ml/flint/internal/backend/cpu"
	"github.com/flint-ml/flint/internal/tensor"
)

func fromSlice(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	x, err := tensor.FromSlice(data, shape, cpu.New())
	require.NoError(t, err)
	return x.Raw()
}

func TestAdd_SameShape(t *testing.T) {
	backend := cpu.New()

	a := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := fromSlice(t, []float32{10, 20, 30, 40}, tensor.Shape{2, 2})

	result := backend.Add(a, b)
	assert.Equal(t, []float32{11, 22, 33, 44}, result.AsFloat32())
	assert.Equal(t, []float32{1, 2, 3, 4}, a.AsFloat32(), "inputs must not be modified")
}

func TestAdd_BroadcastRow(t *testing.T) {
	backend := cpu.New()

	// Bias-style broadcast: [2,3] + [1,3].
	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	bias := fromSlice(t, []float32{10, 20, 30}, tensor.Shape{1, 3})

	result := backend.Add(a, bias)
	assert.Equal(t, tensor.Shape{2, 3}, result.Shape())
	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, result.AsFloat32())
}

func TestAdd_BroadcastScalar(t *testing.T) {
	backend := cpu.New()

	a := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	s := fromSlice(t, []float32{5}, tensor.Shape{1})

	result := backend.Add(a, s)
	assert.Equal(t, []float32{6, 7, 8, 9}, result.AsFloat32())
}

func TestSubMulDiv(t *testing.T) {
	backend := cpu.New()

	a := fromSlice(t, []float32{8, 6, 4, 2}, tensor.Shape{4})
	b := fromSlice(t, []float32{2, 2, 2, 2}, tensor.Shape{4})

	assert.Equal(t, []float32{6, 4, 2, 0}, backend.Sub(a, b).AsFloat32())
	assert.Equal(t, []float32{16, 12, 8, 4}, backend.Mul(a, b).AsFloat32())
	assert.Equal(t, []float32{4, 3, 2, 1}, backend.Div(a, b).AsFloat32())
}

func TestAdd_IncompatibleShapes(t *testing.T) {
	backend := cpu.New()

	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})

	assert.Panics(t, func() { backend.Add(a, b) })
}

func TestMatMul(t *testing.T) {
	backend := cpu.New()

	// [2,3] @ [3,2] -> [2,2]
	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := fromSlice(t, []float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})

	result := backend.MatMul(a, b)
	assert.Equal(t, tensor.Shape{2, 2}, result.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, result.AsFloat32())
}

func TestMatMul_InnerDimMismatch(t *testing.T) {
	backend := cpu.New()

	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})

	defer func() {
		r := recover()
		require.NotNil(t, r)
		_, ok := r.(*tensor.ShapeError)
		assert.True(t, ok, "expected *tensor.ShapeError, got %T", r)
	}()
	backend.MatMul(a, b)
}

func TestTranspose_2D(t *testing.T) {
	backend := cpu.New()

	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	result := backend.Transpose(a)
	assert.Equal(t, tensor.Shape{3, 2}, result.Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, result.AsFloat32())
}

func TestTranspose_Permutation(t *testing.T) {
	backend := cpu.New()

	a := fromSlice(t, []float32{0, 1, 2, 3, 4, 5, 6, 7}, tensor.Shape{2, 2, 2})

	// Swap the first two axes only.
	result := backend.Transpose(a, 1, 0, 2)
	assert.Equal(t, tensor.Shape{2, 2, 2}, result.Shape())
	assert.Equal(t, []float32{0, 1, 4, 5, 2, 3, 6, 7}, result.AsFloat32())
}

func TestTranspose_InvalidAxes(t *testing.T) {
	backend := cpu.New()
	a := fromSlice(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})

	assert.Panics(t, func() { backend.Transpose(a, 0, 2) })
	assert.Panics(t, func() { backend.Transpose(a, 0, 0) })
}

func TestReshape(t *testing.T) {
	backend := cpu.New()

	a := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	result := backend.Reshape(a, tensor.Shape{3, 2})
	assert.Equal(t, tensor.Shape{3, 2}, result.Shape())

	// Reshape is a view over the same buffer.
	a.AsFloat32()[0] = 42
	assert.Equal(t, float32(42), result.AsFloat32()[0])

	assert.Panics(t, func() { backend.Reshape(a, tensor.Shape{4, 2}) })
}
