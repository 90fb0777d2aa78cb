package cli

import (
	"context"
	"fmt"

	"github.com/cruciblehq/cruxpkgs/internal/bootstrap"
	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/eval"
	"github.com/cruciblehq/cruxpkgs/internal/settings"
)

// Selects the environment to bootstrap.
type PlatformFlags struct {
	Platform string `short:"p" help:"Platform to bootstrap (e.g., aarch64-linux). Defaults to the settings, then the host."`
	Full     bool   `help:"Walk every bootstrap stage."`
}

// Bootstraps the selected environment.
func (f *PlatformFlags) run(s *settings.Settings) (*bootstrap.Result, error) {
	flags := PackageFlags{Attr: "stdenv", Platform: f.Platform, Full: f.Full}
	req, err := flags.request(s)
	if err != nil {
		return nil, err
	}
	return eval.Environment(req)
}

// Represents the 'cruxpkgs stdenv' command.
type StdenvCmd struct {
	PlatformFlags
}

// Executes the stdenv command.
//
// Prints the environment a builder of the standard environment receives, one
// NAME=value per line.
func (c *StdenvCmd) Run(ctx context.Context, s *settings.Settings) error {
	res, err := c.run(s)
	if err != nil {
		return err
	}

	var r *drv.Rendered
	if err := recoverInto(func() { r = drv.Render(res.Env.Handle(), drv.StoreResolver{Dir: s.StoreDir}) }); err != nil {
		return err
	}

	fmt.Printf("# %s (%s)\n", r.Name, r.Digest)
	for _, kv := range r.Environ() {
		fmt.Println(kv)
	}
	return nil
}

// Represents the 'cruxpkgs stages' command.
type StagesCmd struct {
	PlatformFlags
}

// Executes the stages command.
//
// Lists every bootstrap stage visited and the environment it carries.
func (c *StagesCmd) Run(ctx context.Context, s *settings.Settings) error {
	res, err := c.run(s)
	if err != nil {
		return err
	}

	for _, stage := range res.Trail {
		env, ok := bootstrap.EnvOf(stage)
		if !ok {
			fmt.Printf("%-8s (seed)\n", stage.Name())
			continue
		}
		fmt.Printf("%-8s %s\n", stage.Name(), env.Name)
	}
	return nil
}

// Runs f, converting contract-violation panics into errors.
func recoverInto(f func()) (err error) {
	defer drv.Recover(&err)
	f()
	return nil
}
