// Describes build steps for the external graph engine.
//
// A [Derivation] is an immutable, declarative description of one build
// action: a builder executable and its arguments, named outputs, an ordered
// set of environment variables and an optional fixed content hash. Values
// placed in the environment are [Value] expressions, which may reference
// other derivations through a [Handle]. References are resolved to output
// paths only when the description is rendered for an executor.
//
// Handles are cheap to copy and are shared by every holder. A handle created
// with [Lazy] defers construction of its derivation until it is first
// forced, and evaluates it at most once. Handle identity is the digest of
// the canonical description, so two handles built from identical
// descriptions are equal even when they were created independently.
//
// Example usage:
//
//	src := drv.New(&drv.Derivation{
//	    Name:      "hello-src",
//	    Builder:   drv.Str("builtin:fetchurl"),
//	    Outputs:   []string{"out"},
//	    FixedHash: digest.Digest("sha256:..."),
//	})
//
//	step := &drv.Derivation{Name: "hello", Version: "2.12.1"}
//	step.Env.Set("SRC", src.Out())
//
//	rendered := drv.Render(step, drv.StoreResolver{Dir: "/cruxpkgs/store"})
package drv
