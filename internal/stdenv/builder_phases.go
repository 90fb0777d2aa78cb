package stdenv

import "github.com/cruciblehq/cruxpkgs/internal/drv"

// Skips the unpack phase.
func (b *Builder) DontUnpack() *Builder {
	b.mutable().unpack.SetEnabled(false)
	return b
}

// Sets the directory entered after unpacking.
func (b *Builder) SrcRoot(dir string) *Builder {
	b.mutable().unpack.SetSrcRoot(drv.Str(dir))
	return b
}

func (b *Builder) PreUnpack(script string) *Builder {
	b.mutable().unpack.SetPre(drv.Str(script))
	return b
}

func (b *Builder) UnpackPhase(script string) *Builder {
	b.mutable().unpack.SetOverride(drv.Str(script))
	return b
}

func (b *Builder) PostUnpack(script string) *Builder {
	b.mutable().unpack.SetPost(drv.Str(script))
	return b
}

// Skips the patch phase.
func (b *Builder) DontPatch() *Builder {
	b.mutable().patch.SetEnabled(false)
	return b
}

// Appends patch files, applied in order.
func (b *Builder) Patches(patches ...drv.Value) *Builder {
	b.mutable().patch.AddPatches(patches...)
	return b
}

func (b *Builder) PatchFlags(flags ...drv.Value) *Builder {
	b.mutable().patch.AddFlags(flags...)
	return b
}

func (b *Builder) PrePatch(script string) *Builder {
	b.mutable().patch.SetPre(drv.Str(script))
	return b
}

func (b *Builder) PatchPhase(script string) *Builder {
	b.mutable().patch.SetOverride(drv.Str(script))
	return b
}

func (b *Builder) PostPatch(script string) *Builder {
	b.mutable().patch.SetPost(drv.Str(script))
	return b
}

// Skips the configure phase.
func (b *Builder) DontConfigure() *Builder {
	b.mutable().configure.SetEnabled(false)
	return b
}

// Replaces the path of the configure script.
func (b *Builder) ConfigureScript(script drv.Value) *Builder {
	b.mutable().configure.SetScript(script)
	return b
}

func (b *Builder) ConfigureFlags(flags ...drv.Value) *Builder {
	b.mutable().configure.AddFlags(flags...)
	return b
}

func (b *Builder) PreConfigure(script string) *Builder {
	b.mutable().configure.SetPre(drv.Str(script))
	return b
}

func (b *Builder) ConfigurePhase(script string) *Builder {
	b.mutable().configure.SetOverride(drv.Str(script))
	return b
}

func (b *Builder) PostConfigure(script string) *Builder {
	b.mutable().configure.SetPost(drv.Str(script))
	return b
}

// Skips the build phase.
func (b *Builder) DontBuild() *Builder {
	b.mutable().build.SetEnabled(false)
	return b
}

// Sets the makefile passed to make with -f.
func (b *Builder) Makefile(path string) *Builder {
	b.mutable().build.SetMakefile(drv.Str(path))
	return b
}

// Appends flags passed to every make invocation.
func (b *Builder) MakeFlags(flags ...drv.Value) *Builder {
	b.mutable().build.AddMakeFlags(flags...)
	return b
}

// Appends flags passed to make in the build phase only.
func (b *Builder) BuildFlags(flags ...drv.Value) *Builder {
	b.mutable().build.AddBuildFlags(flags...)
	return b
}

func (b *Builder) PreBuild(script string) *Builder {
	b.mutable().build.SetPre(drv.Str(script))
	return b
}

func (b *Builder) BuildPhase(script string) *Builder {
	b.mutable().build.SetOverride(drv.Str(script))
	return b
}

func (b *Builder) PostBuild(script string) *Builder {
	b.mutable().build.SetPost(drv.Str(script))
	return b
}

// Runs the check phase.
func (b *Builder) DoCheck() *Builder {
	b.mutable().check.SetEnabled(true)
	return b
}

// Skips the check phase, dropping any check settings.
func (b *Builder) DontCheck() *Builder {
	b.mutable().check.SetEnabled(false)
	return b
}

func (b *Builder) CheckFlags(flags ...drv.Value) *Builder {
	b.mutable().check.AddFlags(flags...)
	return b
}

func (b *Builder) PreCheck(script string) *Builder {
	b.mutable().check.SetPre(drv.Str(script))
	return b
}

func (b *Builder) CheckPhase(script string) *Builder {
	b.mutable().check.SetOverride(drv.Str(script))
	return b
}

func (b *Builder) PostCheck(script string) *Builder {
	b.mutable().check.SetPost(drv.Str(script))
	return b
}

// Skips the install phase.
func (b *Builder) DontInstall() *Builder {
	b.mutable().install.SetEnabled(false)
	return b
}

// Appends make targets run instead of "install".
func (b *Builder) InstallTargets(targets ...drv.Value) *Builder {
	b.mutable().install.AddTargets(targets...)
	return b
}

func (b *Builder) InstallFlags(flags ...drv.Value) *Builder {
	b.mutable().install.AddFlags(flags...)
	return b
}

func (b *Builder) PreInstall(script string) *Builder {
	b.mutable().install.SetPre(drv.Str(script))
	return b
}

func (b *Builder) InstallPhase(script string) *Builder {
	b.mutable().install.SetOverride(drv.Str(script))
	return b
}

func (b *Builder) PostInstall(script string) *Builder {
	b.mutable().install.SetPost(drv.Str(script))
	return b
}

// Skips the fix phase.
func (b *Builder) DontFix() *Builder {
	b.mutable().fix.SetEnabled(false)
	return b
}

// Keeps debug symbols in installed binaries.
func (b *Builder) DontStrip() *Builder {
	b.mutable().fix.SetStrip(false)
	return b
}

// Leaves ELF runtime search paths untouched.
func (b *Builder) DontPatchELF() *Builder {
	b.mutable().fix.SetPatchELF(false)
	return b
}

func (b *Builder) PreFix(script string) *Builder {
	b.mutable().fix.SetPre(drv.Str(script))
	return b
}

func (b *Builder) FixPhase(script string) *Builder {
	b.mutable().fix.SetOverride(drv.Str(script))
	return b
}

func (b *Builder) PostFix(script string) *Builder {
	b.mutable().fix.SetPost(drv.Str(script))
	return b
}

// Runs the install-check phase.
func (b *Builder) DoInstallCheck() *Builder {
	b.mutable().installCheck.SetEnabled(true)
	return b
}

// Skips the install-check phase, dropping any install-check settings.
func (b *Builder) DontInstallCheck() *Builder {
	b.mutable().installCheck.SetEnabled(false)
	return b
}

func (b *Builder) InstallCheckFlags(flags ...drv.Value) *Builder {
	b.mutable().installCheck.AddFlags(flags...)
	return b
}

func (b *Builder) PreInstallCheck(script string) *Builder {
	b.mutable().installCheck.SetPre(drv.Str(script))
	return b
}

func (b *Builder) InstallCheckPhase(script string) *Builder {
	b.mutable().installCheck.SetOverride(drv.Str(script))
	return b
}

func (b *Builder) PostInstallCheck(script string) *Builder {
	b.mutable().installCheck.SetPost(drv.Str(script))
	return b
}
