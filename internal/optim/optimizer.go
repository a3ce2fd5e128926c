// Package optim implements gradient-based optimizers.
package optim

// Optimizer updates parameters from their accumulated gradients.
//
// The training loop contract is: ZeroGrad, forward, backward, Step. Step
// reads each parameter's gradient buffer; parameters whose gradient is
// absent (no backward pass reached them) are skipped.
type Optimizer interface {
	// Step applies one update to every parameter with a gradient.
	Step()

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// LR returns the current learning rate.
	LR() float32
}
