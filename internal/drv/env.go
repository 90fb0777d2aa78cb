package drv

import "iter"

// A single environment variable of a build step.
type Var struct {
	Name  string
	Value Value
}

// An insertion-ordered set of environment variables.
//
// The zero value is empty and ready to use. Setting nil is a no-op and
// setting a false [Flag] removes the variable, so unset options never appear
// in a compiled step. Setting an existing name replaces its value in place,
// keeping the original position.
type Env struct {
	vars  []Var
	index map[string]int
}

// Sets a variable. A nil value leaves the set unchanged and a false flag
// deletes any earlier value.
func (e *Env) Set(name string, v Value) {
	if v == nil {
		return
	}
	if f, ok := v.(Flag); ok && !bool(f) {
		e.Delete(name)
		return
	}
	if e.index == nil {
		e.index = make(map[string]int)
	}
	if i, ok := e.index[name]; ok {
		e.vars[i].Value = v
		return
	}
	e.index[name] = len(e.vars)
	e.vars = append(e.vars, Var{Name: name, Value: v})
}

// Removes a variable, shifting later ones down.
func (e *Env) Delete(name string) {
	i, ok := e.index[name]
	if !ok {
		return
	}
	e.vars = append(e.vars[:i], e.vars[i+1:]...)
	delete(e.index, name)
	for j := i; j < len(e.vars); j++ {
		e.index[e.vars[j].Name] = j
	}
}

// Returns the value of a variable and whether it is present.
func (e *Env) Get(name string) (Value, bool) {
	i, ok := e.index[name]
	if !ok {
		return nil, false
	}
	return e.vars[i].Value, true
}

// Whether a variable is present.
func (e *Env) Has(name string) bool {
	_, ok := e.index[name]
	return ok
}

// Returns the number of variables.
func (e *Env) Len() int {
	return len(e.vars)
}

// Returns the variable names in insertion order.
func (e *Env) Names() []string {
	names := make([]string, len(e.vars))
	for i, v := range e.vars {
		names[i] = v.Name
	}
	return names
}

// Iterates over the variables in insertion order.
func (e *Env) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, v := range e.vars {
			if !yield(v.Name, v.Value) {
				return
			}
		}
	}
}

// Returns an independent copy.
func (e *Env) Clone() Env {
	c := Env{
		vars:  make([]Var, len(e.vars)),
		index: make(map[string]int, len(e.vars)),
	}
	copy(c.vars, e.vars)
	for k, v := range e.index {
		c.index[k] = v
	}
	return c
}
