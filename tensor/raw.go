// Copyright 2025 Flint ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/flint-ml/flint/internal/tensor"
)

// RawTensor is the dtype-erased tensor underlying every Tensor[T, B].
// Backends and the autodiff engine operate on RawTensors directly; its
// identity (pointer) is what the gradient tape keys on.
type RawTensor = tensor.RawTensor
