package stdenv

// Variables set by the builder outside of the phases.
const (
	VarStdenv       = "stdenv"
	VarSrc          = "SRC"
	VarBuildCommand = "BUILD_COMMAND"
	VarPrePhase     = "PRE_PHASE"
	VarPostPhase    = "POST_PHASE"
)

// Phase-specific variables.
const (
	VarSrcRoot           = "SRC_ROOT"
	VarPatches           = "PATCHES"
	VarPatchFlags        = "PATCH_FLAGS"
	VarConfigureScript   = "CONFIGURE_SCRIPT"
	VarConfigureFlags    = "CONFIGURE_FLAGS"
	VarMakefile          = "MAKEFILE"
	VarMakeFlags         = "MAKE_FLAGS"
	VarBuildFlags        = "BUILD_FLAGS"
	VarCheckFlags        = "CHECK_FLAGS"
	VarInstallTargets    = "INSTALL_TARGETS"
	VarInstallFlags      = "INSTALL_FLAGS"
	VarStrip             = "STRIP"
	VarPatchELF          = "PATCH_ELF"
	VarInstallCheckFlags = "INSTALL_CHECK_FLAGS"
)

// Variables of the standard environment step.
const (
	VarPreHook               = "PRE_HOOK"
	VarInitialPath           = "INITIAL_PATH"
	VarCC                    = "CC"
	VarShell                 = "SHELL"
	VarSetup                 = "SETUP"
	VarBuildPlatform         = "BUILD_PLATFORM"
	VarHostPlatform          = "HOST_PLATFORM"
	VarTargetPlatform        = "TARGET_PLATFORM"
	VarDefaultBuildHostDeps  = "DEFAULT_BUILD_HOST_DEPS"
	VarDefaultHostTargetDeps = "DEFAULT_HOST_TARGET_DEPS"
	VarLibc                  = "LIBC"
	VarBinutils              = "BINUTILS"
	VarCoreutils             = "COREUTILS"
	VarGrep                  = "GREP"
	VarPerl                  = "PERL"
)
