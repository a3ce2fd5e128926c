package tensor

import "fmt"

// Tensor is a generic tensor with element type T computed by backend B.
//
// A tensor is either a leaf (created by the user, e.g. a weight matrix) or
// derived (produced by an operation). Gradient tracking is opt-in per tensor:
// a tracked tensor owns a gradient buffer of the same shape, absent until a
// backward pass contributes to it.
//
// Example:
//
//	backend := cpu.New()
//	t := tensor.Zeros[float32](tensor.Shape{3, 4}, backend)
//	sum := t.Add(t)
type Tensor[T DType, B Backend] struct {
	raw          *RawTensor
	backend      B
	grad         *Tensor[T, B]
	requiresGrad bool
}

// New creates a Tensor from a RawTensor and backend.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return &Tensor[T, B]{
		raw:     raw,
		backend: b,
	}
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		return nil, err
	}

	t := New[T, B](raw, b)
	copy(t.Data(), data)
	return t, nil
}

// Shape returns the tensor's shape.
func (t *Tensor[T, B]) Shape() Shape {
	return t.raw.Shape()
}

// DType returns the tensor's data type.
func (t *Tensor[T, B]) DType() DataType {
	return t.raw.DType()
}

// NumElements returns the total number of elements.
func (t *Tensor[T, B]) NumElements() int {
	return t.raw.NumElements()
}

// Raw returns the underlying RawTensor.
// Used by backend implementations for low-level operations.
func (t *Tensor[T, B]) Raw() *RawTensor {
	return t.raw
}

// Backend returns the computation backend.
func (t *Tensor[T, B]) Backend() B {
	return t.backend
}

// Data returns a typed slice view of the tensor's data.
// The slice directly accesses the underlying memory (zero-copy).
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor[T, B]) Data() []T {
	var dummy T
	switch any(dummy).(type) {
	case float32:
		return any(t.raw.AsFloat32()).([]T)
	case float64:
		return any(t.raw.AsFloat64()).([]T)
	case int32:
		return any(t.raw.AsInt32()).([]T)
	default:
		panic("unsupported type")
	}
}

// Item returns the value of a rank-0 scalar tensor.
// Panics if the tensor is not a scalar.
func (t *Tensor[T, B]) Item() T {
	if len(t.Shape()) != 0 {
		panic(fmt.Sprintf("Item() only works for scalar tensors, got shape %v", t.Shape()))
	}
	return t.Data()[0]
}

// At returns the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor[T, B]) At(indices ...int) T {
	return t.Data()[t.flatIndex(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor[T, B]) Set(value T, indices ...int) {
	t.Data()[t.flatIndex(indices)] = value
}

func (t *Tensor[T, B]) flatIndex(indices []int) int {
	if len(indices) != len(t.Shape()) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(t.Shape()), len(indices)))
	}
	offset := 0
	strides := t.raw.Strides()
	for i, idx := range indices {
		if idx < 0 || idx >= t.Shape()[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, t.Shape()[i]))
		}
		offset += idx * strides[i]
	}
	return offset
}

// String returns a human-readable representation of the tensor.
func (t *Tensor[T, B]) String() string {
	return fmt.Sprintf("Tensor[%s]%v on %s", t.raw.DType(), t.raw.Shape(), t.raw.Device())
}

// Clone creates a deep copy of the tensor.
// The gradient buffer and tracking flag are not cloned.
func (t *Tensor[T, B]) Clone() *Tensor[T, B] {
	return &Tensor[T, B]{
		raw:     t.raw.Clone(),
		backend: t.backend,
	}
}

// Detach returns a new tensor sharing the same data but without gradient
// tracking. Backward passes never descend past a detached tensor.
func (t *Tensor[T, B]) Detach() *Tensor[T, B] {
	return &Tensor[T, B]{
		raw:     t.raw,
		backend: t.backend,
	}
}

// RequireGrad marks this tensor for gradient accumulation, turning it into a
// trainable leaf. Returns the tensor itself for chaining.
func (t *Tensor[T, B]) RequireGrad() *Tensor[T, B] {
	t.requiresGrad = true
	return t
}

// RequiresGrad returns true if this tensor accumulates gradients.
func (t *Tensor[T, B]) RequiresGrad() bool {
	return t.requiresGrad
}

// Grad returns the gradient tensor, or nil if no backward pass has
// contributed to this tensor since the last ZeroGrad.
func (t *Tensor[T, B]) Grad() *Tensor[T, B] {
	return t.grad
}

// AccumulateGrad adds a gradient contribution into the tensor's gradient
// buffer, creating the buffer as all-zero on the first contribution.
// Accumulation is additive by contract: contributions from multiple paths to
// the loss, and from repeated backward calls, always sum.
func (t *Tensor[T, B]) AccumulateGrad(contribution *RawTensor) {
	if !t.requiresGrad {
		return
	}
	if !contribution.Shape().Equal(t.Shape()) {
		panic(&ShapeError{
			Op:   "accumulate-grad",
			Want: fmt.Sprintf("%v", t.Shape()),
			Got:  fmt.Sprintf("%v", contribution.Shape()),
		})
	}
	if t.grad == nil {
		raw, err := NewRaw(t.Shape(), t.DType(), t.raw.Device())
		if err != nil {
			panic(err)
		}
		t.grad = New[T, B](raw, t.backend)
	}

	switch t.DType() {
	case Float32:
		dst := t.grad.raw.AsFloat32()
		src := contribution.AsFloat32()
		for i := range dst {
			dst[i] += src[i]
		}
	case Float64:
		dst := t.grad.raw.AsFloat64()
		src := contribution.AsFloat64()
		for i := range dst {
			dst[i] += src[i]
		}
	default:
		panic(fmt.Sprintf("accumulate-grad: unsupported dtype %s", t.DType()))
	}
}

// ZeroGrad discards the gradient buffer. Must be called before each new
// forward/backward cycle in a training loop; omitting it sums gradients
// across unrelated batches.
func (t *Tensor[T, B]) ZeroGrad() {
	t.grad = nil
}
