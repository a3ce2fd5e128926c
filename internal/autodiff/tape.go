package autodiff

import (
	"github.com/flint-ml/flint/internal/autodiff/ops"
	"github.com/flint-ml/flint/internal/tensor"
)

// Tape records operations during the forward pass and replays them in
// reverse to compute gradients.
//
// Because the graph is built by executing forward code, the recording order
// is already a topological order: walking the tape backwards visits every
// operation after all operations that consume its output.
type Tape struct {
	operations []ops.Operation // in execution order
	recording  bool
}

// NewTape creates a new, non-recording tape.
func NewTape() *Tape {
	return &Tape{
		operations: make([]ops.Operation, 0, 64),
	}
}

// StartRecording enables operation recording.
func (t *Tape) StartRecording() {
	t.recording = true
}

// StopRecording disables operation recording.
func (t *Tape) StopRecording() {
	t.recording = false
}

// IsRecording reports whether the tape is currently recording.
func (t *Tape) IsRecording() bool {
	return t.recording
}

// Record appends an operation if the tape is recording.
func (t *Tape) Record(op ops.Operation) {
	if t.recording {
		t.operations = append(t.operations, op)
	}
}

// Clear drops all recorded operations. Recording state is preserved.
// Call between training steps so the tape does not grow across batches.
func (t *Tape) Clear() {
	t.operations = t.operations[:0]
}

// NumOps returns the number of recorded operations.
func (t *Tape) NumOps() int {
	return len(t.operations)
}

// Backward computes gradients for every tensor reachable from root by
// walking the tape in reverse. seed is the gradient of root with respect to
// itself, normally a ones tensor of root's shape.
//
// Returns a map from graph tensor to its accumulated gradient. Tensors with
// no path to root are absent from the map.
func (t *Tape) Backward(root, seed *tensor.RawTensor, backend tensor.Backend) map[*tensor.RawTensor]*tensor.RawTensor {
	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	if len(t.operations) == 0 {
		return grads
	}

	// Gradient arithmetic must not be recorded as new forward operations.
	wasRecording := t.recording
	t.recording = false
	defer func() {
		t.recording = wasRecording
	}()

	grads[root] = seed

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]

		outputGrad, ok := grads[op.Output()]
		if !ok {
			// No gradient flows through this operation's output.
			continue
		}

		inputGrads := op.Backward(outputGrad, backend)
		for j, input := range op.Inputs() {
			if j >= len(inputGrads) || inputGrads[j] == nil {
				continue
			}
			if existing, ok := grads[input]; ok {
				grads[input] = backend.Add(existing, inputGrads[j])
			} else {
				grads[input] = inputGrads[j]
			}
		}
	}

	return grads
}
