// Package realize turns derivation handles into store paths.
//
// A [Realizer] walks the references of a derivation depth-first, realizing
// independent inputs concurrently and deduplicating concurrent requests
// for the same description. Steps whose outputs are already recorded in
// the store database and present on disk are skipped. Builtin fetch steps
// run on the host through the fetch package; every other step is handed to
// an [Executor] together with the store paths of its input closure.
//
// Two executors are provided. [ContainerExecutor] starts a sandbox
// container per step, copies the input closure in, runs the builder with
// the rendered environment and copies the outputs back into the store.
// [HostExecutor] runs the builder directly on the host without isolation
// and is meant for development and tests.
//
// Example usage:
//
//	r := realize.New(realize.Options{
//	    StoreDir: "/cruxpkgs/store",
//	    Store:    db,
//	    Executor: realize.NewContainerExecutor(rt, tag),
//	    Jobs:     4,
//	})
//
//	res, err := r.Realize(ctx, pkgs.Hello(env))
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Outputs[0].Path)
package realize
