package drv

import (
	"encoding/json"

	"github.com/opencontainers/go-digest"
)

// Name of the output a step gets when it declares none.
const DefaultOutput = "out"

// A declarative description of one build step.
//
// Only the graph engine interprets a derivation. Builder and Args are
// resolved like environment values. A non-empty FixedHash marks the step as
// fixed-output: the engine verifies the produced content against it instead
// of relying on the reproducibility of the step's inputs.
type Derivation struct {
	Name      string        // Package name.
	Version   string        // Optional version, empty for unversioned steps.
	Builder   Value         // Executable run by the engine.
	Args      []Value       // Arguments passed to the builder.
	Outputs   []string      // Named outputs, [DefaultOutput] when empty.
	Env       Env           // Environment variables, in layout order.
	FixedHash digest.Digest // Expected content hash of a fixed-output step.
	System    string        // Platform triple the step runs on.
}

// Returns the step name used for display and store paths.
//
// The name is "name-version" when a version is set and "name" otherwise.
func (d *Derivation) DisplayName() string {
	if d.Version == "" {
		return d.Name
	}
	return d.Name + "-" + d.Version
}

// Returns the declared outputs, defaulting to [DefaultOutput].
func (d *Derivation) OutputNames() []string {
	if len(d.Outputs) == 0 {
		return []string{DefaultOutput}
	}
	return d.Outputs
}

// Whether the step is content-verified after execution.
func (d *Derivation) IsFixedOutput() bool {
	return d.FixedHash != ""
}

// Canonical serialization of a derivation. References are encoded by the
// digest of the referenced description, making the encoding a Merkle tree.
type canonicalDerivation struct {
	Name      string           `json:"name"`
	Version   string           `json:"version,omitempty"`
	System    string           `json:"system,omitempty"`
	Builder   any              `json:"builder"`
	Args      []any            `json:"args"`
	Outputs   []string         `json:"outputs"`
	Env       []canonicalEntry `json:"env"`
	FixedHash string           `json:"fixedHash,omitempty"`
}

type canonicalEntry struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Encodes the derivation in its canonical form.
func (d *Derivation) MarshalJSON() ([]byte, error) {
	c := canonicalDerivation{
		Name:      d.Name,
		Version:   d.Version,
		System:    d.System,
		Args:      make([]any, 0, len(d.Args)),
		Outputs:   d.OutputNames(),
		Env:       make([]canonicalEntry, 0, d.Env.Len()),
		FixedHash: d.FixedHash.String(),
	}
	if d.Builder != nil {
		c.Builder = d.Builder.canonical()
	}
	for _, a := range d.Args {
		if a != nil {
			c.Args = append(c.Args, a.canonical())
		}
	}
	for name, v := range d.Env.All() {
		c.Env = append(c.Env, canonicalEntry{Name: name, Value: v.canonical()})
	}
	return json.Marshal(c)
}

// Returns the handles referenced by the builder, arguments and environment
// of d, in order of first appearance. Each referenced description appears
// once.
func References(d *Derivation) []Handle {
	var refs []Handle
	seen := make(map[digest.Digest]bool)
	visit := func(h Handle) {
		dg := h.Digest()
		if seen[dg] {
			return
		}
		seen[dg] = true
		refs = append(refs, h)
	}

	Walk(d.Builder, visit)
	for _, a := range d.Args {
		Walk(a, visit)
	}
	for _, v := range d.Env.All() {
		Walk(v, visit)
	}
	return refs
}
