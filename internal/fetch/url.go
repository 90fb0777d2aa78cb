package fetch

import (
	"fmt"
	"path"
	"strings"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/opencontainers/go-digest"
)

// Builder of fetch steps. The realizer runs these on the host instead of in
// a sandbox.
const Builtin = "builtin:fetchurl"

// Variables of a fetch step.
const (
	VarURL        = "URL"
	VarExecutable = "EXECUTABLE"
	VarUnpack     = "UNPACK"
)

// Describes a download.
type URLOptions struct {
	Name       string // Step name, defaults to the last path element of the URL.
	URL        string // Location of the file.
	Hash       string // Expected digest (e.g., "sha256:<hex>").
	Executable bool   // Mark the downloaded file executable.
	Unpack     bool   // Unpack the downloaded archive into the output.
}

// Returns a fixed-output step downloading a file.
//
// The step has no dependencies and no standard environment: its content is
// verified against the hash, so its inputs never need to be reproducible.
// Panics with a contract violation when the URL is empty or the hash is not
// a valid digest.
func URL(o URLOptions) drv.Handle {
	if o.URL == "" {
		drv.Violation("fetch without a URL")
	}
	hash, err := digest.Parse(o.Hash)
	if err != nil {
		drv.Violation("fetch %s: hash %q: %v", o.URL, o.Hash, err)
	}

	name := o.Name
	if name == "" {
		name = path.Base(strings.TrimRight(o.URL, "/"))
	}

	d := &drv.Derivation{
		Name:      name,
		Builder:   drv.Str(Builtin),
		FixedHash: hash,
	}
	d.Env.Set(VarURL, drv.Str(o.URL))
	d.Env.Set(VarExecutable, drv.Flag(o.Executable))
	d.Env.Set(VarUnpack, drv.Flag(o.Unpack))

	return drv.New(d)
}

// Whether a rendered step is a builtin fetch.
func IsBuiltin(r *drv.Rendered) bool {
	return r.Builder == Builtin
}

// Extracts download options from a rendered fetch step.
func OptionsFrom(r *drv.Rendered) (Options, error) {
	if !IsBuiltin(r) {
		return Options{}, fmt.Errorf("%w: %s is built by %q", ErrInvalidStep, r.Name, r.Builder)
	}
	url, ok := r.Lookup(VarURL)
	if !ok || url == "" {
		return Options{}, fmt.Errorf("%w: %s has no URL", ErrInvalidStep, r.Name)
	}
	hash, err := digest.Parse(r.FixedHash)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %s: %w", ErrInvalidStep, r.Name, err)
	}
	if len(r.Outputs) != 1 {
		return Options{}, fmt.Errorf("%w: %s has %d outputs", ErrInvalidStep, r.Name, len(r.Outputs))
	}
	_, executable := r.Lookup(VarExecutable)
	_, unpack := r.Lookup(VarUnpack)

	return Options{
		URL:        url,
		Hash:       hash,
		Dest:       r.Outputs[0].Path,
		Executable: executable,
		Unpack:     unpack,
	}, nil
}
