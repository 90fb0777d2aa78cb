package stdenv

import (
	"slices"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/platform"
	"github.com/opencontainers/go-digest"
)

// Accumulates a package description against a standard environment.
//
// Setters return the builder for chaining. A builder is single-use: after
// [Builder.Build] (directly or through a forced [Builder.Lazy] handle) any
// further call is a contract violation.
type Builder struct {
	env          Stdenv
	step         *drv.Derivation
	name         string
	version      string
	outputs      []string
	fixedHash    digest.Digest
	system       string
	script       drv.Value
	src          drv.Value
	buildCommand drv.Value
	prePhase     drv.Value
	postPhase    drv.Value
	deps         Matrix
	propagated   Matrix
	unpack       *Unpack
	patch        *Patch
	configure    *Configure
	build        *Build
	check        *Check
	install      *Install
	fix          *Fix
	installCheck *InstallCheck
	built        bool
}

// Creates a builder against env.
//
// The step under construction starts with a single input, "stdenv",
// referencing the environment's own step.
func New(env Stdenv) *Builder {
	b := &Builder{
		env:          env.Clone(),
		step:         &drv.Derivation{},
		unpack:       NewUnpack(),
		patch:        NewPatch(),
		configure:    NewConfigure(),
		build:        NewBuild(),
		check:        NewCheck(),
		install:      NewInstall(),
		fix:          NewFix(),
		installCheck: NewInstallCheck(),
	}
	b.step.Env.Set(VarStdenv, env.Handle().Out())
	return b
}

// Guards setters against use after the builder was consumed.
func (b *Builder) mutable() *Builder {
	if b.built {
		drv.Violation("builder for %q used after build", b.name)
	}
	return b
}

// Sets the package name. Required.
func (b *Builder) Name(name string) *Builder {
	b.mutable().name = name
	return b
}

// Sets the package version.
func (b *Builder) Version(version string) *Builder {
	b.mutable().version = version
	return b
}

// Declares a named output. Outputs keep declaration order; the first one is
// the default output.
func (b *Builder) Out(name string) *Builder {
	b.mutable()
	if name == "" {
		drv.Violation("empty output name")
	}
	if !slices.Contains(b.outputs, name) {
		b.outputs = append(b.outputs, name)
	}
	return b
}

// Marks the step fixed-output and sets the hash its content is verified
// against (e.g., "sha256:<hex>").
func (b *Builder) FixedHash(hash string) *Builder {
	b.mutable()
	d, err := digest.Parse(hash)
	if err != nil {
		drv.Violation("fixed hash %q: %v", hash, err)
	}
	b.fixedHash = d
	return b
}

// Sets the platform the step runs on. Defaults to the environment's host.
func (b *Builder) System(p platform.Platform) *Builder {
	b.mutable().system = p.String()
	return b
}

// Sets an environment variable. The value must not be nil.
func (b *Builder) Input(key string, v drv.Value) *Builder {
	b.mutable()
	if v == nil {
		drv.Violation("input %q has no value, use InputIf for optional inputs", key)
	}
	b.step.Env.Set(key, v)
	return b
}

// Sets an environment variable when v is not nil. A nil value leaves the
// variable unset.
func (b *Builder) InputIf(key string, v drv.Value) *Builder {
	b.mutable().step.Env.Set(key, v)
	return b
}

// Sets a flag variable: "1" when true, unset when false.
func (b *Builder) InputBool(key string, v bool) *Builder {
	b.mutable().step.Env.Set(key, drv.Flag(v))
	return b
}

// Replaces the generic builder script run by the environment's shell.
func (b *Builder) Builder(script drv.Value) *Builder {
	b.mutable().script = script
	return b
}

// Sets the sources unpacked by the unpack phase.
func (b *Builder) Src(src drv.Value) *Builder {
	b.mutable().src = src
	return b
}

// Sets a command that replaces the whole phase sequence.
func (b *Builder) BuildCommand(cmd drv.Value) *Builder {
	b.mutable().buildCommand = cmd
	return b
}

// Sets a script run before the first phase.
func (b *Builder) PrePhase(script string) *Builder {
	b.mutable().prePhase = drv.Str(script)
	return b
}

// Sets a script run after the last phase.
func (b *Builder) PostPhase(script string) *Builder {
	b.mutable().postPhase = drv.Str(script)
	return b
}

// Applies f only when cond holds, keeping the chain intact.
func (b *Builder) Optional(cond bool, f func(*Builder) *Builder) *Builder {
	b.mutable()
	if cond {
		return f(b)
	}
	return b
}

// Compiles the accumulated description and consumes the builder.
//
// Panics with a contract violation when no name was set. The layout is:
// stdenv and user inputs in call order, SRC, BUILD_COMMAND, PRE_PHASE,
// POST_PHASE, the plain and propagated dependency matrices, then the phases
// unpack, patch, configure, build, check, install, fix and install-check.
func (b *Builder) Build() *drv.Derivation {
	b.mutable()
	b.built = true
	return b.compile()
}

// Returns a handle that builds the step on first use.
//
// The builder is consumed immediately: any later mutation is a contract
// violation, even before the handle is forced.
func (b *Builder) Lazy() drv.Handle {
	b.mutable()
	b.built = true
	return drv.Lazy(b.compile)
}

func (b *Builder) compile() *drv.Derivation {
	if b.name == "" {
		drv.Violation("derivation has no name")
	}

	d := b.step
	d.Name = b.name
	d.Version = b.version
	d.Outputs = b.outputs
	d.FixedHash = b.fixedHash
	d.System = b.system
	if d.System == "" && !b.env.HostPlatform.IsZero() {
		d.System = b.env.HostPlatform.String()
	}

	script := b.script
	if script == nil {
		script = drv.Str(defaultBuilderScript)
	}
	d.Builder = b.env.Shell
	d.Args = []drv.Value{drv.Str("-e"), drv.Str("-c"), script}

	d.Env.Set(VarSrc, b.src)
	d.Env.Set(VarBuildCommand, b.buildCommand)
	d.Env.Set(VarPrePhase, b.prePhase)
	d.Env.Set(VarPostPhase, b.postPhase)

	b.deps.Compile(d, false)
	b.propagated.Compile(d, true)

	b.unpack.Compile(d)
	b.patch.Compile(d)
	b.configure.Compile(d)
	b.build.Compile(d)
	b.check.Compile(d)
	b.install.Compile(d)
	b.fix.Compile(d)
	b.installCheck.Compile(d)

	return d
}
