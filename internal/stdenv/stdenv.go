package stdenv

import (
	"slices"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/platform"
)

// The base build environment every package step depends on.
//
// A Stdenv is a plain value. Copies are independent except for the shared,
// immutable handles they reference; use [Stdenv.Clone] before modifying
// the slices of a copy.
type Stdenv struct {
	Name                  string            // Step name (e.g., "stdenv-stage0").
	PreHook               drv.Value         // Script run before the setup script, nil for none.
	InitialPath           drv.Value         // Directories whose bin/ form the initial PATH.
	CC                    drv.Value         // Compiler, nil for none.
	Shell                 drv.Value         // Shell running every builder script.
	Setup                 drv.Value         // Setup script, nil for the embedded executor.
	BuildPlatform         platform.Platform // Machine building.
	HostPlatform          platform.Platform // Machine running what is built.
	TargetPlatform        platform.Platform // Machine the built tools produce code for.
	DefaultBuildHostDeps  []drv.Value       // Native inputs added to every package.
	DefaultHostTargetDeps []drv.Value       // Inputs added to every package.
	Libc                  drv.Value         // C library, nil for none.
	Binutils              drv.Value         // Assembler and linker, nil for none.
	Coreutils             drv.Value         // Core utilities, nil for none.
	Grep                  drv.Value         // grep, nil for none.
	Perl                  drv.Value         // Interpreter, nil for none.
}

// Returns a copy whose slices do not alias the receiver's.
func (s Stdenv) Clone() Stdenv {
	s.DefaultBuildHostDeps = slices.Clone(s.DefaultBuildHostDeps)
	s.DefaultHostTargetDeps = slices.Clone(s.DefaultHostTargetDeps)
	return s
}

// Compiles the environment into its own build step.
//
// The step runs the environment's shell on the embedded stdenv builder,
// which installs "$out/setup". Panics with a contract violation when the
// name or the shell is missing.
func (s Stdenv) Derivation() *drv.Derivation {
	if s.Name == "" {
		drv.Violation("standard environment has no name")
	}
	if s.Shell == nil {
		drv.Violation("standard environment %q has no shell", s.Name)
	}

	setup := s.Setup
	if setup == nil {
		setup = drv.Str(setupScript)
	}

	d := &drv.Derivation{
		Name:    s.Name,
		Builder: s.Shell,
		Args:    []drv.Value{drv.Str("-e"), drv.Str("-c"), drv.Str(stdenvBuilderScript)},
	}
	if !s.HostPlatform.IsZero() {
		d.System = s.HostPlatform.String()
	}

	// The compiler runs on the build machine for every package.
	buildHost := slices.Clone(s.DefaultBuildHostDeps)
	if s.CC != nil {
		buildHost = append(buildHost, s.CC)
	}

	d.Env.Set(VarPreHook, s.PreHook)
	d.Env.Set(VarInitialPath, s.InitialPath)
	d.Env.Set(VarCC, s.CC)
	d.Env.Set(VarDefaultBuildHostDeps, drv.List(buildHost))
	d.Env.Set(VarDefaultHostTargetDeps, drv.List(slices.Clone(s.DefaultHostTargetDeps)))
	d.Env.Set(VarBuildPlatform, platformValue(s.BuildPlatform))
	d.Env.Set(VarHostPlatform, platformValue(s.HostPlatform))
	d.Env.Set(VarTargetPlatform, platformValue(s.TargetPlatform))
	d.Env.Set(VarShell, s.Shell)
	d.Env.Set(VarSetup, setup)
	d.Env.Set(VarLibc, s.Libc)
	d.Env.Set(VarBinutils, s.Binutils)
	d.Env.Set(VarCoreutils, s.Coreutils)
	d.Env.Set(VarGrep, s.Grep)
	d.Env.Set(VarPerl, s.Perl)

	return d
}

// Returns a lazy handle to the environment's build step.
func (s Stdenv) Handle() drv.Handle {
	s = s.Clone()
	return drv.Lazy(s.Derivation)
}

// Opens a package builder against this environment.
func (s Stdenv) MakeDerivation() *Builder {
	return New(s)
}

func platformValue(p platform.Platform) drv.Value {
	if p.IsZero() {
		return nil
	}
	return drv.Str(p.String())
}
