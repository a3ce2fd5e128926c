package nn

import "fmt"

// LabelRangeError reports a class label outside [0, NumClasses).
// Returned by loss functions and the trainer before any gradient state is
// touched, so a failed batch leaves parameters and tape unchanged.
type LabelRangeError struct {
	Index      int   // position of the offending label in the batch
	Label      int32 // the label value
	NumClasses int
}

func (e *LabelRangeError) Error() string {
	return fmt.Sprintf("label %d at index %d out of range [0, %d)", e.Label, e.Index, e.NumClasses)
}

// GradientNotAvailableError reports an attempt to read a gradient that no
// backward pass has produced yet.
type GradientNotAvailableError struct {
	Param string // parameter name
}

func (e *GradientNotAvailableError) Error() string {
	return fmt.Sprintf("no gradient available for parameter %q: run a backward pass first", e.Param)
}
