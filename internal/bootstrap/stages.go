package bootstrap

import (
	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/pkgs"
	"github.com/cruciblehq/cruxpkgs/internal/platform"
	"github.com/cruciblehq/cruxpkgs/internal/stdenv"
)

// Disables shebang rewriting. The bootstrap tools' interpreters live at
// paths that only exist inside the tools bundle.
const stage0PreHook = "export DONT_PATCH_SHEBANGS=1"

// A state of the bootstrap pipeline.
//
// The set of implementations is closed: [Stage0], [Stage1], [Stage2],
// [Stage3] and [Final].
type Stage interface {
	// Returns the stage name (e.g., "stage1").
	Name() string
	isStage()
}

// Common state of the stages before [Final].
type Seed struct {
	Platform platform.Platform // Build, host and target platform.
	WantLibc bool              // Whether a C library is part of the environment.
	Tools    drv.Handle        // Unpacked bootstrap tools.
}

// Raw bootstrap tools, no environment yet.
type Stage0 struct {
	Seed
}

// Stage0 environment in place; adds the bootstrap perl.
type Stage1 struct {
	Seed
	Prev stdenv.Stdenv
}

// Compiler bootstrap.
type Stage2 struct {
	Seed
	Prev stdenv.Stdenv
}

// Last stage before the environment is final.
type Stage3 struct {
	Seed
	Prev stdenv.Stdenv
}

// The finished environment.
type Final struct {
	Env stdenv.Stdenv
}

func (Stage0) Name() string { return "stage0" }
func (Stage1) Name() string { return "stage1" }
func (Stage2) Name() string { return "stage2" }
func (Stage3) Name() string { return "stage3" }
func (Final) Name() string  { return "final" }

func (Stage0) isStage() {}
func (Stage1) isStage() {}
func (Stage2) isStage() {}
func (Stage3) isStage() {}
func (Final) isStage()  {}

// Returns the environment a stage carries, if any.
func EnvOf(s Stage) (stdenv.Stdenv, bool) {
	switch s := s.(type) {
	case Stage1:
		return s.Prev, true
	case Stage2:
		return s.Prev, true
	case Stage3:
		return s.Prev, true
	case Final:
		return s.Env, true
	default:
		return stdenv.Stdenv{}, false
	}
}

// The transition function of the bootstrap pipeline.
type Pipeline struct {
	// Walk stage1 to stage3 instead of finishing right after stage0.
	Full bool
}

// Returns the successor of a stage. [Final] is its own successor.
//
// Each call builds a new value from the old one; no stage is modified in
// place.
func (p Pipeline) Advance(s Stage) Stage {
	switch s := s.(type) {
	case Stage0:
		env := stage0Env(s.Seed)
		if !p.Full {
			return Final{Env: env}
		}
		return Stage1{Seed: s.Seed, Prev: env}
	case Stage1:
		return Stage2{Seed: s.Seed, Prev: stage1Env(s.Prev)}
	case Stage2:
		env := s.Prev.Clone()
		env.Name = "stdenv-stage2"
		return Stage3{Seed: s.Seed, Prev: env}
	case Stage3:
		return Final{Env: s.Prev}
	case Final:
		return s
	default:
		drv.Violation("unknown bootstrap stage %T", s)
		return nil
	}
}

// Builds the stage0 environment straight from the bootstrap tools.
//
// The tools bundle serves as shell, binutils, coreutils and grep at once.
func stage0Env(seed Seed) stdenv.Stdenv {
	if !seed.WantLibc {
		drv.Unsupported("bootstrapping without a C library")
	}

	tools := seed.Tools
	env := stdenv.Stdenv{
		Name:           "stdenv-stage0",
		PreHook:        drv.Str(stage0PreHook),
		InitialPath:    drv.List{tools.Out()},
		Shell:          tools.Path("/bin/bash"),
		BuildPlatform:  seed.Platform,
		HostPlatform:   seed.Platform,
		TargetPlatform: seed.Platform,
		Binutils:       tools.Out(),
		Coreutils:      tools.Out(),
		Grep:           tools.Out(),
	}
	env.Libc = libc(env, tools).Out()

	return env
}

// Adds a bootstrap perl built with the previous environment.
//
// The interpreter is built without threads and without zlib: a minimal,
// deterministic perl is all the bootstrap needs.
func stage1Env(prev stdenv.Stdenv) stdenv.Stdenv {
	perl := pkgs.Perl(prev, pkgs.PerlOptions{Threading: false})

	env := prev.Clone()
	env.Name = "stdenv-stage1"
	env.Perl = perl.Out()
	return env
}
