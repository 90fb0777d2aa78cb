package drv

import (
	"path"
	"slices"
	"strings"
)

// Default directory under which output paths are resolved.
const DefaultStoreDir = "/cruxpkgs/store"

// Number of hex digits of the digest used in store path names.
const storeHashLen = 32

// Maps a handle's output to the path it is realized at.
type Resolver interface {
	Path(h Handle, output string) string
}

// Resolves output paths inside a store directory.
//
// A path has the form "<dir>/<hash>-<name>" for the first output and
// "<dir>/<hash>-<name>-<output>" for the others, where hash is a prefix of
// the derivation digest.
type StoreResolver struct {
	Dir string // Store directory, [DefaultStoreDir] when empty.
}

// Returns the store path of an output. An empty output selects the first.
func (s StoreResolver) Path(h Handle, output string) string {
	d := h.Force()
	outputs := d.OutputNames()
	if output == "" {
		output = outputs[0]
	}
	if !slices.Contains(outputs, output) {
		Violation("%s has no output %q", d.DisplayName(), output)
	}

	name := h.Digest().Encoded()[:storeHashLen] + "-" + d.DisplayName()
	if output != outputs[0] {
		name += "-" + output
	}

	dir := s.Dir
	if dir == "" {
		dir = DefaultStoreDir
	}
	return path.Join(dir, name)
}

// A build step with every value resolved to a string.
type Rendered struct {
	Name      string           `json:"name" yaml:"name"`
	Digest    string           `json:"digest" yaml:"digest"`
	System    string           `json:"system,omitempty" yaml:"system,omitempty"`
	Builder   string           `json:"builder" yaml:"builder"`
	Args      []string         `json:"args" yaml:"args"`
	Outputs   []RenderedOutput `json:"outputs" yaml:"outputs"`
	FixedHash string           `json:"fixedHash,omitempty" yaml:"fixedHash,omitempty"`
	Env       []RenderedVar    `json:"env" yaml:"env"`
}

// A named output and the path it is realized at.
type RenderedOutput struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// A resolved environment variable.
type RenderedVar struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Resolves every value of the handle's derivation.
//
// Variables are listed in the order they were compiled, which is the layout
// the generic executor consumes.
func Render(h Handle, r Resolver) *Rendered {
	d := h.Force()

	out := &Rendered{
		Name:      d.DisplayName(),
		Digest:    h.Digest().String(),
		System:    d.System,
		Args:      make([]string, 0, len(d.Args)),
		FixedHash: d.FixedHash.String(),
		Env:       make([]RenderedVar, 0, d.Env.Len()),
	}

	out.Builder, _ = RenderValue(d.Builder, r)
	for _, a := range d.Args {
		if s, ok := RenderValue(a, r); ok {
			out.Args = append(out.Args, s)
		}
	}
	for _, o := range d.OutputNames() {
		out.Outputs = append(out.Outputs, RenderedOutput{Name: o, Path: r.Path(h, o)})
	}
	for name, v := range d.Env.All() {
		if s, ok := RenderValue(v, r); ok {
			out.Env = append(out.Env, RenderedVar{Name: name, Value: s})
		}
	}

	return out
}

// Formats the rendered step as "key=value" strings for an executor.
//
// Each output is exported under its own name (e.g. out=/store/...-hello)
// ahead of the compiled variables, followed by "outputs" listing the output
// names in order.
func (r *Rendered) Environ() []string {
	env := make([]string, 0, len(r.Outputs)+len(r.Env)+1)
	names := make([]string, 0, len(r.Outputs))
	for _, o := range r.Outputs {
		env = append(env, o.Name+"="+o.Path)
		names = append(names, o.Name)
	}
	env = append(env, "outputs="+strings.Join(names, " "))
	for _, v := range r.Env {
		env = append(env, v.Name+"="+v.Value)
	}
	return env
}

// Returns the value of a rendered variable and whether it is present.
func (r *Rendered) Lookup(name string) (string, bool) {
	for _, v := range r.Env {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}
