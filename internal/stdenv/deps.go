package stdenv

import (
	"strings"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
)

// A (producer, consumer) pair of build/host/target roles.
//
// Only pairs where the producer's role does not come after the consumer's
// in build, host, target order are meaningful: a dependency built for the
// target machine can never run on the build machine.
type Slot int

const (
	BuildBuild   Slot = iota // Runs on the build machine, produces for the build machine.
	BuildHost                // Runs on the build machine, produces for the host machine (e.g., a cross compiler).
	BuildTarget              // Runs on the build machine, produces for the target machine.
	HostHost                 // Runs on the host machine, used at build time.
	HostTarget               // Runs on the host machine, produces for the target machine (e.g., linked libraries).
	TargetTarget             // Built for the target machine.
)

// Every slot in layout order.
var Slots = [...]Slot{BuildBuild, BuildHost, BuildTarget, HostHost, HostTarget, TargetTarget}

var slotNames = [...]string{"build_build", "build_host", "build_target", "host_host", "host_target", "target_target"}

// Returns the slot name (e.g., "build_host").
func (s Slot) String() string {
	if s < 0 || int(s) >= len(slotNames) {
		return "invalid"
	}
	return slotNames[s]
}

// Returns the variable name of the slot in plain or propagated form.
func (s Slot) Var(propagated bool) string {
	prefix := "DEPS_"
	if propagated {
		prefix = "PROPAGATED_"
	}
	return prefix + strings.ToUpper(s.String())
}

// Dependencies classified by build/host/target slot.
//
// Each dependency is recorded in exactly one slot. Order within a slot is
// preserved so the rendered variables are reproducible.
type Matrix struct {
	slots [len(Slots)]drv.List
}

// Appends a dependency to a slot.
//
// Adding a dependency already present in the slot is a no-op. Adding one
// present in another slot is a contract violation. Add compares
// expressions by identity and never forces a handle, so dependencies may be
// recorded before the steps they reference are built. Structurally
// identical dependencies are reconciled by [Matrix.Compile].
func (m *Matrix) Add(slot Slot, dep drv.Value) {
	if slot < 0 || int(slot) >= len(Slots) {
		drv.Violation("invalid dependency slot %d", slot)
	}
	if dep == nil {
		drv.Violation("nil dependency in slot %s", slot)
	}

	for _, s := range Slots {
		for _, existing := range m.slots[s] {
			if !drv.Identical(existing, dep) {
				continue
			}
			if s == slot {
				return
			}
			drv.Violation("dependency already in slot %s, cannot add to %s", s, slot)
		}
	}

	m.slots[slot] = append(m.slots[slot], dep)
}

// Returns the dependencies recorded in a slot.
func (m *Matrix) Get(slot Slot) drv.List {
	return m.slots[slot]
}

// Emits all six slot variables into d.
//
// Empty slots render as present, empty variables so the executor can tell
// "no dependencies" from "slot unsupported". Dependencies are compared
// structurally here: a repeat within a slot is dropped and one spanning two
// slots is a contract violation. Comparing forces every referenced handle.
func (m *Matrix) Compile(d *drv.Derivation, propagated bool) {
	owner := make(map[string]Slot)
	for _, s := range Slots {
		deps := drv.List{}
		for _, dep := range m.slots[s] {
			key := drv.Key(dep)
			if prev, ok := owner[key]; ok {
				if prev != s {
					drv.Violation("dependency %s in both slot %s and %s", key, prev, s)
				}
				continue
			}
			owner[key] = s
			deps = append(deps, dep)
		}
		d.Env.Set(s.Var(propagated), deps)
	}
}
