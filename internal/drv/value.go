package drv

import (
	"encoding/json"
	"strings"
)

// An expression usable as an environment variable value or a builder
// argument.
//
// The set of implementations is closed: [Str], [Ref], [List] and [Flag]. A
// nil Value stands for an absent variable.
type Value interface {
	render(r Resolver) (string, bool)
	walk(fn func(Handle))
	canonical() any
}

// A literal string.
type Str string

func (s Str) render(Resolver) (string, bool) { return string(s), true }
func (s Str) walk(func(Handle))              {}
func (s Str) canonical() any                 { return string(s) }

// A boolean rendered as "1" when set. A false flag renders as an absent
// variable.
type Flag bool

func (f Flag) render(Resolver) (string, bool) {
	if f {
		return "1", true
	}
	return "", false
}
func (f Flag) walk(func(Handle)) {}
func (f Flag) canonical() any    { return bool(f) }

// An ordered list of values, flattened to a space-delimited string.
//
// Items that render as absent are skipped. An empty list renders as a
// present, empty string.
type List []Value

func (l List) render(r Resolver) (string, bool) {
	parts := make([]string, 0, len(l))
	for _, v := range l {
		if v == nil {
			continue
		}
		if s, ok := v.render(r); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), true
}

func (l List) walk(fn func(Handle)) {
	for _, v := range l {
		if v != nil {
			v.walk(fn)
		}
	}
}

func (l List) canonical() any {
	items := make([]any, 0, len(l))
	for _, v := range l {
		if v != nil {
			items = append(items, v.canonical())
		}
	}
	return items
}

// A reference to an output path of another derivation.
//
// Output selects a named output; empty selects the derivation's first
// output. Sub is appended verbatim to the resolved path (e.g. "/bin/perl").
type Ref struct {
	Handle Handle
	Output string
	Sub    string
}

func (r Ref) render(res Resolver) (string, bool) {
	return res.Path(r.Handle, r.Output) + r.Sub, true
}

func (r Ref) walk(fn func(Handle)) { fn(r.Handle) }

func (r Ref) canonical() any {
	c := map[string]any{"ref": r.Handle.Digest().String()}
	if r.Output != "" {
		c["output"] = r.Output
	}
	if r.Sub != "" {
		c["sub"] = r.Sub
	}
	return c
}

// Builds a [List] from strings.
func Strs(items ...string) List {
	l := make(List, len(items))
	for i, s := range items {
		l[i] = Str(s)
	}
	return l
}

// Renders a single value. Reports false when the value is absent.
func RenderValue(v Value, r Resolver) (string, bool) {
	if v == nil {
		return "", false
	}
	return v.render(r)
}

// Calls fn for every handle referenced by v, in order of appearance.
func Walk(v Value, fn func(Handle)) {
	if v != nil {
		v.walk(fn)
	}
}

// Returns a canonical string identifying v, used to compare values.
//
// References are keyed by the digest of the referenced description, so two
// references to structurally identical steps share a key.
func Key(v Value) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v.canonical())
	if err != nil {
		Violation("encoding value: %v", err)
	}
	return string(b)
}

// Reports whether a and b are the same expression without forcing any
// handle.
//
// References match when they point at the same handle, output and suffix.
// Two handles describing structurally identical steps are not identical;
// use [Key] for structural comparison.
func Identical(a, b Value) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case Str:
		b, ok := b.(Str)
		return ok && a == b
	case Flag:
		b, ok := b.(Flag)
		return ok && a == b
	case Ref:
		b, ok := b.(Ref)
		return ok && a.Handle.n == b.Handle.n && a.Output == b.Output && a.Sub == b.Sub
	case List:
		b, ok := b.(List)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !Identical(a[i], b[i]) {
				return false
			}
		}
		return true
	}
	return false
}
