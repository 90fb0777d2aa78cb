// Composes package build steps against a standard build environment.
//
// A [Stdenv] describes the baseline toolchain every package builds with:
// the shell, the initial search path, the compiler, libc and the core
// utilities. Package recipes open a [Builder] against it with
// [Stdenv.MakeDerivation], describe sources, phases and dependencies, and
// finalize the result with [Builder.Build] or [Builder.Lazy].
//
// A build runs eight phases in a fixed order: unpack, patch, configure,
// build, check, install, fix and install-check. Each phase can be disabled,
// overridden, or bracketed with pre and post hooks. Dependencies are
// classified along the build/host/target matrix in a plain and a propagated
// form.
//
// The compiled step is a flat set of environment variables consumed by the
// generic executor installed as "$stdenv/setup". The order in which
// [Builder.Build] compiles inputs, dependency matrices and phases fixes the
// variable layout of that contract.
//
// Example usage:
//
//	zlib := env.MakeDerivation().
//	    Name("zlib").
//	    Version("1.3.1").
//	    Src(src.Out()).
//	    ConfigureFlags(drv.Str("--static")).
//	    DoCheck().
//	    Lazy()
package stdenv
