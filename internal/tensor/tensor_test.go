package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flint-ml/flint/internal/backend/cpu"
	"github.com/flint-ml/flint/internal/tensor"
)

func TestShape_NumElements(t *testing.T) {
	assert.Equal(t, 1, tensor.Shape{}.NumElements(), "rank-0 scalar has one element")
	assert.Equal(t, 6, tensor.Shape{2, 3}.NumElements())
	assert.Equal(t, 24, tensor.Shape{2, 3, 4}.NumElements())
}

func TestShape_ComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, tensor.Shape{2, 3, 4}.ComputeStrides())
	assert.Equal(t, []int{1}, tensor.Shape{5}.ComputeStrides())
	assert.Empty(t, tensor.Shape{}.ComputeStrides())
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name           string
		a, b, want     tensor.Shape
		needsBroadcast bool
	}{
		{"equal", tensor.Shape{2, 3}, tensor.Shape{2, 3}, tensor.Shape{2, 3}, false},
		{"bias row", tensor.Shape{4, 3}, tensor.Shape{1, 3}, tensor.Shape{4, 3}, true},
		{"missing leading dim", tensor.Shape{4, 3}, tensor.Shape{3}, tensor.Shape{4, 3}, true},
		{"scalar", tensor.Shape{2, 3}, tensor.Shape{}, tensor.Shape{2, 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, needs, err := tensor.BroadcastShapes(tt.a, tt.b)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			assert.Equal(t, tt.needsBroadcast, needs)
		})
	}
}

func TestBroadcastShapes_Incompatible(t *testing.T) {
	_, _, err := tensor.BroadcastShapes(tensor.Shape{2, 3}, tensor.Shape{2, 4})
	require.Error(t, err)

	var shapeErr *tensor.ShapeError
	assert.ErrorAs(t, err, &shapeErr)
}

func TestFromSlice(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)
	assert.Equal(t, float32(6), x.At(1, 2))

	_, err = tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 3}, backend)
	assert.Error(t, err, "element count mismatch must be rejected")
}

func TestTensor_Item(t *testing.T) {
	backend := cpu.New()

	s := tensor.Scalar[float32](2.5, backend)
	assert.Equal(t, tensor.Shape{}, s.Shape())
	assert.Equal(t, float32(2.5), s.Item())

	v := tensor.Ones[float32](tensor.Shape{1}, backend)
	assert.Panics(t, func() { v.Item() }, "Item must reject non-scalar tensors, even single-element ones")
}

func TestTensor_AtSet(t *testing.T) {
	backend := cpu.New()

	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
	x.Set(7, 1, 2)
	assert.Equal(t, float32(7), x.At(1, 2))
	assert.Equal(t, float32(0), x.At(0, 0))

	assert.Panics(t, func() { x.At(2, 0) })
}

func TestRawTensor_WithShape(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)

	view, err := x.Raw().WithShape(tensor.Shape{3, 2})
	require.NoError(t, err)

	// The view shares the buffer.
	x.Set(42, 0, 0)
	assert.Equal(t, float32(42), view.AsFloat32()[0])

	_, err = x.Raw().WithShape(tensor.Shape{4, 2})
	var shapeErr *tensor.ShapeError
	assert.ErrorAs(t, err, &shapeErr)
}

func TestAccumulateGrad_Additive(t *testing.T) {
	backend := cpu.New()

	p := tensor.Zeros[float32](tensor.Shape{2}, backend).RequireGrad()
	require.Nil(t, p.Grad(), "gradient buffer starts absent")

	contribution, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	p.AccumulateGrad(contribution.Raw())
	require.NotNil(t, p.Grad())
	assert.Equal(t, []float32{1, 2}, p.Grad().Data())

	p.AccumulateGrad(contribution.Raw())
	assert.Equal(t, []float32{2, 4}, p.Grad().Data(), "contributions must sum")

	p.ZeroGrad()
	assert.Nil(t, p.Grad())
}

func TestAccumulateGrad_NotRequired(t *testing.T) {
	backend := cpu.New()

	x := tensor.Zeros[float32](tensor.Shape{2}, backend)
	g := tensor.Ones[float32](tensor.Shape{2}, backend)

	x.AccumulateGrad(g.Raw())
	assert.Nil(t, x.Grad(), "untracked tensors ignore gradient contributions")
}

func TestAccumulateGrad_ShapeMismatch(t *testing.T) {
	backend := cpu.New()

	p := tensor.Zeros[float32](tensor.Shape{2}, backend).RequireGrad()
	bad := tensor.Ones[float32](tensor.Shape{3}, backend)

	assert.PanicsWithError(t, "accumulate-grad: shape mismatch: want [2], got [3]", func() {
		p.AccumulateGrad(bad.Raw())
	})
}

func TestTensor_Detach(t *testing.T) {
	backend := cpu.New()

	p := tensor.Ones[float32](tensor.Shape{2}, backend).RequireGrad()
	d := p.Detach()

	assert.False(t, d.RequiresGrad())
	assert.Equal(t, p.Raw(), d.Raw(), "detached tensor shares data")
}
