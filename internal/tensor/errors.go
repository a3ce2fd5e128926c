package tensor

import "fmt"

// ShapeError reports a mismatch between tensor dimensions anywhere in a
// forward or backward computation. It is unrecoverable at the point raised:
// retrying without a code or data fix cannot succeed.
type ShapeError struct {
	Op   string // operation that detected the mismatch (e.g. "matmul", "linear")
	Want string // expected dimensions, human readable
	Got  string // actual dimensions
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: shape mismatch: want %s, got %s", e.Op, e.Want, e.Got)
}
