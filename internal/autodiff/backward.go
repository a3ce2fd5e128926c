package autodiff

import (
	"fmt"

	"github.com/flint-ml/flint/internal/tensor"
)

// Backward runs reverse-mode differentiation from a scalar loss.
//
// The loss must be rank-0; differentiating a non-scalar is ambiguous without
// an explicit seed and is rejected with a ShapeError. The gradient of the
// loss with respect to itself is seeded as 1.
//
// Repeated calls without clearing the tape re-walk all recorded operations,
// so gradients delivered to parameters accumulate additively.
func Backward[T tensor.DType, B tensor.Backend](loss *tensor.Tensor[T, *Engine[B]], engine *Engine[B]) (map[*tensor.RawTensor]*tensor.RawTensor, error) {
	if len(loss.Shape()) != 0 {
		return nil, &tensor.ShapeError{
			Op:   "backward",
			Want: "rank-0 scalar loss",
			Got:  fmt.Sprintf("%v", loss.Shape()),
		}
	}

	seed, err := tensor.NewRaw(tensor.Shape{}, loss.DType(), engine.Device())
	if err != nil {
		return nil, err
	}
	switch loss.DType() {
	case tensor.Float32:
		seed.AsFloat32()[0] = 1
	case tensor.Float64:
		seed.AsFloat64()[0] = 1
	default:
		return nil, fmt.Errorf("backward: unsupported loss dtype %s", loss.DType())
	}

	return engine.tape.Backward(loss.Raw(), seed, engine), nil
}
