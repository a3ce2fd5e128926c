package autodiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flint-ml/flint/internal/autodiff"
	"github.com/flint-ml/flint/internal/backend/cpu"
	"github.com/flint-ml/flint/internal/tensor"
)

func TestBackward_SimpleSquare(t *testing.T) {
	engine := autodiff.New(cpu.New())
	engine.Tape().StartRecording()

	x, err := tensor.FromSlice([]float32{3}, tensor.Shape{1, 1}, engine)
	require.NoError(t, err)

	y := x.Mul(x)                                          // y = x^2
	loss := tensor.New[float32](engine.Mean(y.Raw()), engine) // scalar

	grads, err := autodiff.Backward(loss, engine)
	require.NoError(t, err)

	// dy/dx = 2x = 6
	require.NotNil(t, grads[x.Raw()])
	assert.InDelta(t, 6.0, grads[x.Raw()].AsFloat32()[0], 1e-5)
}

func TestBackward_FanOutAccumulates(t *testing.T) {
	engine := autodiff.New(cpu.New())
	engine.Tape().StartRecording()

	x, err := tensor.FromSlice([]float32{2}, tensor.Shape{1, 1}, engine)
	require.NoError(t, err)

	// x feeds the loss through two paths: y = x*x + x.
	squared := x.Mul(x)
	y := squared.Add(x)
	loss := tensor.New[float32](engine.Mean(y.Raw()), engine)

	grads, err := autodiff.Backward(loss, engine)
	require.NoError(t, err)

	// dy/dx = 2x + 1 = 5
	assert.InDelta(t, 5.0, grads[x.Raw()].AsFloat32()[0], 1e-5)
}

func TestBackward_NonScalarLoss(t *testing.T) {
	engine := autodiff.New(cpu.New())
	engine.Tape().StartRecording()

	x, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, engine)
	require.NoError(t, err)
	y := x.Add(x)

	_, err = autodiff.Backward(y, engine)
	require.Error(t, err)

	var shapeErr *tensor.ShapeError
	assert.ErrorAs(t, err, &shapeErr)
}

func TestBackward_RepeatedCallsResum(t *testing.T) {
	engine := autodiff.New(cpu.New())
	engine.Tape().StartRecording()

	x, err := tensor.FromSlice([]float32{3}, tensor.Shape{1, 1}, engine)
	require.NoError(t, err)
	loss := tensor.New[float32](engine.Mean(x.Mul(x).Raw()), engine)

	grads1, err := autodiff.Backward(loss, engine)
	require.NoError(t, err)
	grads2, err := autodiff.Backward(loss, engine)
	require.NoError(t, err)

	// Each walk over the intact tape produces the same full gradient.
	assert.InDelta(t, 6.0, grads1[x.Raw()].AsFloat32()[0], 1e-5)
	assert.InDelta(t, 6.0, grads2[x.Raw()].AsFloat32()[0], 1e-5)
}

func TestNoGrad_SuspendsRecording(t *testing.T) {
	engine := autodiff.New(cpu.New())
	tape := engine.Tape()
	tape.StartRecording()

	x, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, engine)
	require.NoError(t, err)

	func() {
		defer engine.NoGrad()()
		_ = x.Add(x)
		assert.False(t, tape.IsRecording())
	}()

	assert.True(t, tape.IsRecording(), "recording state must be restored")
	assert.Equal(t, 0, tape.NumOps(), "operations inside NoGrad must not be recorded")

	_ = x.Add(x)
	assert.Equal(t, 1, tape.NumOps())
}

func TestNoGrad_NestedRestoresOuterState(t *testing.T) {
	engine := autodiff.New(cpu.New())
	tape := engine.Tape()

	// Recording disabled: NoGrad must not enable it on restore.
	restore := engine.NoGrad()
	restore()
	assert.False(t, tape.IsRecording())
}

func TestTape_ClearPreservesRecordingState(t *testing.T) {
	engine := autodiff.New(cpu.New())
	tape := engine.Tape()
	tape.StartRecording()

	x, err := tensor.FromSlice([]float32{1}, tensor.Shape{1}, engine)
	require.NoError(t, err)
	_ = x.Add(x)
	require.Equal(t, 1, tape.NumOps())

	tape.Clear()
	assert.Equal(t, 0, tape.NumOps())
	assert.True(t, tape.IsRecording())
}

func TestBackward_EmptyTape(t *testing.T) {
	engine := autodiff.New(cpu.New())

	loss := tensor.Scalar[float32](1.5, engine)
	grads, err := autodiff.Backward(loss, engine)
	require.NoError(t, err)
	assert.Empty(t, grads)
}

func TestBackward_DetachedBranchGetsNoGradient(t *testing.T) {
	engine := autodiff.New(cpu.New())
	tape := engine.Tape()

	x, err := tensor.FromSlice([]float32{2}, tensor.Shape{1, 1}, engine)
	require.NoError(t, err)

	// Build x*x while the tape is off, then use the result while recording.
	frozen := x.Mul(x)

	tape.StartRecording()
	y := frozen.Add(x)
	loss := tensor.New[float32](engine.Mean(y.Raw()), engine)

	grads, err := autodiff.Backward(loss, engine)
	require.NoError(t, err)

	// Only the recorded path contributes: dy/dx = 1.
	assert.InDelta(t, 1.0, grads[x.Raw()].AsFloat32()[0], 1e-5)
}
