// Builds the first standard environment from pre-built binaries.
//
// The pipeline starts from an opaque, per-platform bundle of bootstrap
// tools (a static busybox and a tarball with a shell, compiler, binutils,
// coreutils and a C library) and produces a [stdenv.Stdenv] every package
// can build against.
//
// Stages are values of the closed sum type [Stage]: [Stage0], [Stage1],
// [Stage2], [Stage3] and [Final]. [Pipeline.Advance] maps every stage to
// exactly one successor and [Final] to itself, so [Pipeline.Run] reaches
// the final environment in a bounded number of transitions. Each stage is
// built only with the environment of the stage before it; nothing from the
// host leaks in.
//
// The fast path goes from [Stage0] straight to [Final]. Setting
// [Options.Full] walks the deeper stages, which add a bootstrap perl built
// with the stage0 environment.
//
// Example usage:
//
//	env, err := bootstrap.BuildEnvironment(platform.MustParse("x86_64-linux"), true)
//	if err != nil {
//	    return err
//	}
//	hello := pkgs.Hello(env)
package bootstrap
