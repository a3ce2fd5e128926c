// Copyright 2025 Flint ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/flint-ml/flint/internal/tensor"
)

// Backend is the interface compute implementations satisfy. All operations
// allocate fresh outputs; inputs are never modified in place.
type Backend = tensor.Backend
