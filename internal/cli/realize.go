package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cruciblehq/cruxpkgs/internal/eval"
	"github.com/cruciblehq/cruxpkgs/internal/protocol"
	"github.com/cruciblehq/cruxpkgs/internal/settings"
)

// Represents the 'cruxpkgs realize' command.
type RealizeCmd struct {
	PackageFlags
	Jobs   int  `short:"j" help:"Steps built at once. Defaults to the settings, then the CPU count."`
	Daemon bool `help:"Build in the running daemon."`
}

// Executes the realize command.
//
// Builds the package and everything it depends on, then prints the store
// path of each output.
func (c *RealizeCmd) Run(ctx context.Context, s *settings.Settings) error {
	if c.Daemon {
		return c.runRemote(ctx, s)
	}

	req, err := c.request(s)
	if err != nil {
		return err
	}
	h, err := eval.Package(req)
	if err != nil {
		return err
	}

	e, err := newEngine(ctx, s, c.Jobs)
	if err != nil {
		return err
	}
	defer e.close()

	res, err := e.realizer.Realize(ctx, h)
	if err != nil {
		return err
	}

	slog.Info("realized", "name", res.Name, "cached", res.Cached)
	for _, o := range res.Outputs {
		fmt.Println(o.Path)
	}
	return nil
}

// Sends the request to the daemon.
func (c *RealizeCmd) runRemote(ctx context.Context, s *settings.Settings) error {
	_, payload, err := protocol.Call(ctx, s.Socket, protocol.CmdRealize, &protocol.RealizeRequest{PackageRequest: c.remote()})
	if err != nil {
		return err
	}
	res, err := protocol.DecodePayload[protocol.RealizeResult](payload)
	if err != nil {
		return err
	}

	slog.Info("realized", "name", res.Name, "cached", res.Cached)
	for _, o := range res.Outputs {
		fmt.Println(o.Path)
	}
	return nil
}
