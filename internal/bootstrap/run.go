package bootstrap

import (
	"log/slog"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/platform"
	"github.com/cruciblehq/cruxpkgs/internal/stdenv"
)

// Upper bound on transitions from [Stage0] to [Final].
const maxTransitions = 4

// Controls a bootstrap run.
type Options struct {
	Platform platform.Platform // Platform to bootstrap, the host when zero.
	WantLibc bool              // Include a C library. Required.
	Full     bool              // Walk every stage instead of the fast path.
}

// Returned after a bootstrap run.
type Result struct {
	Env   stdenv.Stdenv // The final environment.
	Trail []Stage       // Every stage visited, from [Stage0] to [Final].
}

// Runs the pipeline from a fresh [Stage0] to [Final].
//
// Contract violations and unsupported platforms are returned as errors
// wrapping [drv.ErrContractViolation] or [drv.ErrUnsupported].
func Run(opts Options) (res *Result, err error) {
	defer drv.Recover(&err)

	p := opts.Platform
	if p.IsZero() {
		p = platform.Host()
	}

	var s Stage = Stage0{Seed: Seed{
		Platform: p,
		WantLibc: opts.WantLibc,
		Tools:    Tools(p),
	}}

	pipeline := Pipeline{Full: opts.Full}
	trail := []Stage{s}

	for range maxTransitions {
		if final, ok := s.(Final); ok {
			slog.Debug("bootstrap finished", "platform", p, "stages", len(trail), "env", final.Env.Name)
			return &Result{Env: final.Env, Trail: trail}, nil
		}
		s = pipeline.Advance(s)
		slog.Debug("bootstrap stage", "platform", p, "stage", s.Name())
		trail = append(trail, s)
	}

	final, ok := s.(Final)
	if !ok {
		drv.Violation("bootstrap did not finish within %d transitions", maxTransitions)
	}
	return &Result{Env: final.Env, Trail: trail}, nil
}

// Returns the standard environment bootstrapped for a platform using the
// fast path.
func BuildEnvironment(p platform.Platform, wantLibc bool) (stdenv.Stdenv, error) {
	res, err := Run(Options{Platform: p, WantLibc: wantLibc})
	if err != nil {
		return stdenv.Stdenv{}, err
	}
	return res.Env, nil
}
