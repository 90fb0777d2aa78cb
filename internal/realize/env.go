package realize

import (
	"strings"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
)

// Home directory of every step. It does not exist, so builders cannot
// depend on the invoking user's dotfiles.
const homeless = "/homeless-shelter"

// Ordered process environment of a step.
//
// Variables keep the position they were first set at. Setting a variable
// again replaces its value in place.
type stepEnv struct {
	order []string
	vars  map[string]string
}

// Creates the environment every step starts from, with buildDir as its
// scratch directory.
func newStepEnv(buildDir string) *stepEnv {
	e := &stepEnv{vars: make(map[string]string)}
	e.set("HOME", homeless)
	e.set("TMPDIR", buildDir)
	e.set("TMP", buildDir)
	e.set("TEMP", buildDir)
	e.set("BUILD_TOP", buildDir)
	return e
}

// Sets a variable.
func (e *stepEnv) set(key, value string) {
	if _, ok := e.vars[key]; !ok {
		e.order = append(e.order, key)
	}
	e.vars[key] = value
}

// Applies "key=value" entries in order. Entries without "=" are ignored.
func (e *stepEnv) apply(entries []string) {
	for _, entry := range entries {
		if k, v, ok := strings.Cut(entry, "="); ok {
			e.set(k, v)
		}
	}
}

// Formats the environment as "key=value" strings.
func (e *stepEnv) environ() []string {
	env := make([]string, 0, len(e.order))
	for _, k := range e.order {
		env = append(env, k+"="+e.vars[k])
	}
	return env
}

// Returns the process environment of a rendered step.
//
// The step's own outputs and variables override the defaults.
func stepEnviron(r *drv.Rendered, buildDir string) []string {
	e := newStepEnv(buildDir)
	e.apply(r.Environ())
	return e.environ()
}
