// Package eval resolves package attributes against a bootstrapped standard
// environment.
package eval

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cruciblehq/cruxpkgs/internal/bootstrap"
	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/pkgs"
	"github.com/cruciblehq/cruxpkgs/internal/platform"
	"github.com/cruciblehq/cruxpkgs/internal/stdenv"
)

var ErrUnknownAttr = errors.New("unknown attribute")

// Selects a package and how its environment is bootstrapped.
type Request struct {
	Attr     string            // Package attribute, see [pkgs.Names].
	Platform platform.Platform // Platform to bootstrap, the host when zero.
	Full     bool              // Walk every bootstrap stage.
}

// Bootstraps the standard environment for a request.
func Environment(req Request) (*bootstrap.Result, error) {
	return bootstrap.Run(bootstrap.Options{
		Platform: req.Platform,
		WantLibc: true,
		Full:     req.Full,
	})
}

// Returns the package a request names, forced so that recipe errors
// surface here rather than in the realizer.
func Package(req Request) (h drv.Handle, err error) {
	defer drv.Recover(&err)

	res, err := Environment(req)
	if err != nil {
		return drv.Handle{}, err
	}

	if req.Attr == "stdenv" {
		h = res.Env.Handle()
	} else {
		var ok bool
		h, ok = pkgs.Lookup(res.Env, req.Attr)
		if !ok {
			return drv.Handle{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownAttr, req.Attr, Attrs())
		}
	}

	h.Force()
	return h, nil
}

// Returns every attribute [Package] accepts, sorted.
func Attrs() []string {
	names := append(pkgs.Names(), "stdenv")
	slices.Sort(names)
	return names
}

// Parses a platform string, returning the zero platform for "".
func ParsePlatform(s string) (platform.Platform, error) {
	if s == "" {
		return platform.Platform{}, nil
	}
	return platform.Parse(s)
}

// Returns the environment a request's package is built against.
func Stdenv(req Request) (stdenv.Stdenv, error) {
	res, err := Environment(req)
	if err != nil {
		return stdenv.Stdenv{}, err
	}
	return res.Env, nil
}
