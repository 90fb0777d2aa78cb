package realize

import (
	"context"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
)

// A build step ready for execution.
type Step struct {
	Rendered *drv.Rendered // Step with every value resolved.
	Inputs   []string      // Store paths of the input closure, sorted.
	StoreDir string        // Store directory the output paths live in.
}

// Runs the builder of a step.
//
// On success every output path of the step must exist in the store.
// Executors never see builtin fetch steps.
type Executor interface {
	Execute(ctx context.Context, step *Step) error
}
