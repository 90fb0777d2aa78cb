package stdenv

import "github.com/cruciblehq/cruxpkgs/internal/drv"

// Adds dependencies to a slot of the plain or propagated matrix.
func (b *Builder) addDeps(slot Slot, propagated bool, deps []drv.Value) *Builder {
	b.mutable()
	m := &b.deps
	if propagated {
		m = &b.propagated
	}
	for _, dep := range deps {
		m.Add(slot, dep)
	}
	return b
}

// Tools run at build time that produce code for the build machine.
func (b *Builder) DepsBuildBuild(deps ...drv.Value) *Builder {
	return b.addDeps(BuildBuild, false, deps)
}

// Tools run at build time that produce code for the host machine, such as
// compilers. These are the usual "native" build inputs.
func (b *Builder) DepsBuildHost(deps ...drv.Value) *Builder {
	return b.addDeps(BuildHost, false, deps)
}

func (b *Builder) DepsBuildTarget(deps ...drv.Value) *Builder {
	return b.addDeps(BuildTarget, false, deps)
}

func (b *Builder) DepsHostHost(deps ...drv.Value) *Builder {
	return b.addDeps(HostHost, false, deps)
}

// Libraries linked into the host program. These are the usual build
// inputs.
func (b *Builder) DepsHostTarget(deps ...drv.Value) *Builder {
	return b.addDeps(HostTarget, false, deps)
}

func (b *Builder) DepsTargetTarget(deps ...drv.Value) *Builder {
	return b.addDeps(TargetTarget, false, deps)
}

func (b *Builder) PropagatedBuildBuild(deps ...drv.Value) *Builder {
	return b.addDeps(BuildBuild, true, deps)
}

func (b *Builder) PropagatedBuildHost(deps ...drv.Value) *Builder {
	return b.addDeps(BuildHost, true, deps)
}

func (b *Builder) PropagatedBuildTarget(deps ...drv.Value) *Builder {
	return b.addDeps(BuildTarget, true, deps)
}

func (b *Builder) PropagatedHostHost(deps ...drv.Value) *Builder {
	return b.addDeps(HostHost, true, deps)
}

// Libraries re-exported to every consumer of this package, e.g. headers
// that include another library's headers.
func (b *Builder) PropagatedHostTarget(deps ...drv.Value) *Builder {
	return b.addDeps(HostTarget, true, deps)
}

func (b *Builder) PropagatedTargetTarget(deps ...drv.Value) *Builder {
	return b.addDeps(TargetTarget, true, deps)
}
