package stdenv

import "github.com/cruciblehq/cruxpkgs/internal/drv"

// State shared by every phase descriptor.
//
// A descriptor is a single-use accumulator: setters record toggles and
// scripts, and Compile transfers the result into a step. A disabled phase
// compiles to nothing, whatever its other fields hold.
type phase struct {
	kind     string    // Phase name used in errors.
	prefix   string    // Variable prefix (e.g., "CONFIGURE").
	enabled  bool      // Whether the phase runs.
	consumed bool      // Set once the descriptor has been compiled.
	pre      drv.Value // Script run before the phase.
	override drv.Value // Script replacing the phase's default action.
	post     drv.Value // Script run after the phase.
}

func newPhase(kind, prefix string, enabled bool) phase {
	return phase{kind: kind, prefix: prefix, enabled: enabled}
}

// Guards setters against use after compilation.
func (p *phase) mutable() {
	if p.consumed {
		drv.Violation("%s phase modified after compilation", p.kind)
	}
}

// Enables or disables the phase. The last call wins.
func (p *phase) SetEnabled(enabled bool) {
	p.mutable()
	p.enabled = enabled
}

// Whether the phase runs.
func (p *phase) Enabled() bool {
	return p.enabled
}

// Sets the script run before the phase.
func (p *phase) SetPre(script drv.Value) {
	p.mutable()
	p.pre = script
}

// Sets the script that replaces the phase's default action.
func (p *phase) SetOverride(script drv.Value) {
	p.mutable()
	p.override = script
}

// Sets the script run after the phase.
func (p *phase) SetPost(script drv.Value) {
	p.mutable()
	p.post = script
}

// Emits the phase's variables in layout order: the enable flag, the
// phase-specific fields, then the pre, override and post hooks.
func (p *phase) compile(d *drv.Derivation, fields func(env *drv.Env)) {
	if p.consumed {
		drv.Violation("%s phase compiled twice", p.kind)
	}
	p.consumed = true

	if !p.enabled {
		return
	}

	d.Env.Set(p.prefix, drv.Flag(true))
	fields(&d.Env)
	d.Env.Set("PRE_"+p.prefix, p.pre)
	d.Env.Set(p.prefix+"_PHASE", p.override)
	d.Env.Set("POST_"+p.prefix, p.post)
}

// Returns l as a value, or nil when the list was never set.
func listValue(l drv.List) drv.Value {
	if l == nil {
		return nil
	}
	return l
}

// Appends to a list, marking it set even when no items are given.
func appendList(l drv.List, items ...drv.Value) drv.List {
	if l == nil {
		l = make(drv.List, 0, len(items))
	}
	return append(l, items...)
}

// Extracts the sources into the build directory.
type Unpack struct {
	phase
	srcRoot drv.Value
}

// Creates an enabled unpack phase.
func NewUnpack() *Unpack {
	return &Unpack{phase: newPhase("unpack", "UNPACK", true)}
}

// Sets the directory to enter after unpacking.
func (u *Unpack) SetSrcRoot(dir drv.Value) {
	u.mutable()
	u.srcRoot = dir
}

// Emits the phase into d and consumes the descriptor.
func (u *Unpack) Compile(d *drv.Derivation) {
	u.compile(d, func(env *drv.Env) {
		env.Set(VarSrcRoot, u.srcRoot)
	})
}

// Applies patch files to the unpacked sources.
type Patch struct {
	phase
	patches drv.List
	flags   drv.List
}

// Creates an enabled patch phase.
func NewPatch() *Patch {
	return &Patch{phase: newPhase("patch", "PATCH", true)}
}

// Appends patch files, applied in order.
func (p *Patch) AddPatches(patches ...drv.Value) {
	p.mutable()
	p.patches = appendList(p.patches, patches...)
}

// Appends flags passed to patch.
func (p *Patch) AddFlags(flags ...drv.Value) {
	p.mutable()
	p.flags = appendList(p.flags, flags...)
}

// Emits the phase into d and consumes the descriptor.
func (p *Patch) Compile(d *drv.Derivation) {
	p.compile(d, func(env *drv.Env) {
		env.Set(VarPatches, listValue(p.patches))
		env.Set(VarPatchFlags, listValue(p.flags))
	})
}

// Runs the configure script.
type Configure struct {
	phase
	script drv.Value
	flags  drv.List
}

// Creates an enabled configure phase.
func NewConfigure() *Configure {
	return &Configure{phase: newPhase("configure", "CONFIGURE", true)}
}

// Replaces the path of the configure script.
func (c *Configure) SetScript(script drv.Value) {
	c.mutable()
	c.script = script
}

// Appends flags passed to the configure script.
func (c *Configure) AddFlags(flags ...drv.Value) {
	c.mutable()
	c.flags = appendList(c.flags, flags...)
}

// Emits the phase into d and consumes the descriptor.
func (c *Configure) Compile(d *drv.Derivation) {
	c.compile(d, func(env *drv.Env) {
		env.Set(VarConfigureScript, c.script)
		env.Set(VarConfigureFlags, listValue(c.flags))
	})
}

// Runs make.
type Build struct {
	phase
	makefile   drv.Value
	makeFlags  drv.List
	buildFlags drv.List
}

// Creates an enabled build phase.
func NewBuild() *Build {
	return &Build{phase: newPhase("build", "BUILD", true)}
}

// Sets the makefile passed to make with -f.
func (b *Build) SetMakefile(path drv.Value) {
	b.mutable()
	b.makefile = path
}

// Appends flags passed to every make invocation.
func (b *Build) AddMakeFlags(flags ...drv.Value) {
	b.mutable()
	b.makeFlags = appendList(b.makeFlags, flags...)
}

// Appends flags passed to make during the build phase only.
func (b *Build) AddBuildFlags(flags ...drv.Value) {
	b.mutable()
	b.buildFlags = appendList(b.buildFlags, flags...)
}

// Emits the phase into d and consumes the descriptor.
func (b *Build) Compile(d *drv.Derivation) {
	b.compile(d, func(env *drv.Env) {
		env.Set(VarMakefile, b.makefile)
		env.Set(VarMakeFlags, listValue(b.makeFlags))
		env.Set(VarBuildFlags, listValue(b.buildFlags))
	})
}

// Runs the test suite after building.
type Check struct {
	phase
	flags drv.List
}

// Creates a disabled check phase.
func NewCheck() *Check {
	return &Check{phase: newPhase("check", "CHECK", false)}
}

// Appends flags passed to make check.
func (c *Check) AddFlags(flags ...drv.Value) {
	c.mutable()
	c.flags = appendList(c.flags, flags...)
}

// Emits the phase into d and consumes the descriptor.
func (c *Check) Compile(d *drv.Derivation) {
	c.compile(d, func(env *drv.Env) {
		env.Set(VarCheckFlags, listValue(c.flags))
	})
}

// Installs the build products into the outputs.
type Install struct {
	phase
	targets drv.List
	flags   drv.List
}

// Creates an enabled install phase.
func NewInstall() *Install {
	return &Install{phase: newPhase("install", "INSTALL", true)}
}

// Appends make targets run instead of "install".
func (i *Install) AddTargets(targets ...drv.Value) {
	i.mutable()
	i.targets = appendList(i.targets, targets...)
}

// Appends flags passed to make during installation.
func (i *Install) AddFlags(flags ...drv.Value) {
	i.mutable()
	i.flags = appendList(i.flags, flags...)
}

// Emits the phase into d and consumes the descriptor.
func (i *Install) Compile(d *drv.Derivation) {
	i.compile(d, func(env *drv.Env) {
		env.Set(VarInstallTargets, listValue(i.targets))
		env.Set(VarInstallFlags, listValue(i.flags))
	})
}

// Post-processes installed files: strips binaries and shrinks their
// runtime search paths.
type Fix struct {
	phase
	strip    bool
	patchELF bool
}

// Creates an enabled fix phase that strips and patches binaries.
func NewFix() *Fix {
	return &Fix{phase: newPhase("fix", "FIX", true), strip: true, patchELF: true}
}

// Sets whether binaries are stripped.
func (f *Fix) SetStrip(strip bool) {
	f.mutable()
	f.strip = strip
}

// Sets whether ELF runtime search paths are rewritten.
func (f *Fix) SetPatchELF(patch bool) {
	f.mutable()
	f.patchELF = patch
}

// Emits the phase into d and consumes the descriptor.
func (f *Fix) Compile(d *drv.Derivation) {
	f.compile(d, func(env *drv.Env) {
		env.Set(VarStrip, drv.Flag(f.strip))
		env.Set(VarPatchELF, drv.Flag(f.patchELF))
	})
}

// Runs the test suite against the installed outputs.
type InstallCheck struct {
	phase
	flags drv.List
}

// Creates a disabled install-check phase.
func NewInstallCheck() *InstallCheck {
	return &InstallCheck{phase: newPhase("install-check", "INSTALL_CHECK", false)}
}

// Appends flags passed to make installcheck.
func (i *InstallCheck) AddFlags(flags ...drv.Value) {
	i.mutable()
	i.flags = appendList(i.flags, flags...)
}

// Emits the phase into d and consumes the descriptor.
func (i *InstallCheck) Compile(d *drv.Derivation) {
	i.compile(d, func(env *drv.Env) {
		env.Set(VarInstallCheckFlags, listValue(i.flags))
	})
}
