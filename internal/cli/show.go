package cli

import (
	"context"
	"os"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/eval"
	"github.com/cruciblehq/cruxpkgs/internal/protocol"
	"github.com/cruciblehq/cruxpkgs/internal/settings"
)

// Selects a package. Shared by the commands that evaluate one.
type PackageFlags struct {
	Attr     string `arg:"" help:"Package attribute (e.g., hello, zlib, curl, stdenv)."`
	Platform string `short:"p" help:"Platform to bootstrap (e.g., aarch64-linux). Defaults to the settings, then the host."`
	Full     bool   `help:"Walk every bootstrap stage."`
}

// Returns the evaluation request, filling defaults from the settings.
func (f *PackageFlags) request(s *settings.Settings) (eval.Request, error) {
	p := s.TargetPlatform()
	if f.Platform != "" {
		parsed, err := eval.ParsePlatform(f.Platform)
		if err != nil {
			return eval.Request{}, err
		}
		p = parsed
	}
	return eval.Request{Attr: f.Attr, Platform: p, Full: f.Full || s.FullBootstrap}, nil
}

// Returns the request sent to the daemon.
func (f *PackageFlags) remote() protocol.PackageRequest {
	return protocol.PackageRequest{Attr: f.Attr, Platform: f.Platform, Full: f.Full}
}

// Represents the 'cruxpkgs show' command.
type ShowCmd struct {
	PackageFlags
	Format string `short:"f" enum:"json,yaml" default:"json" help:"Output format (json, yaml)."`
	Daemon bool   `help:"Evaluate in the running daemon."`
}

// Executes the show command.
//
// Prints the package's build step with every reference resolved to a
// store path, without building anything.
func (c *ShowCmd) Run(ctx context.Context, s *settings.Settings) error {
	if c.Daemon {
		_, payload, err := protocol.Call(ctx, s.Socket, protocol.CmdShow, &protocol.ShowRequest{PackageRequest: c.remote()})
		if err != nil {
			return err
		}
		res, err := protocol.DecodePayload[protocol.ShowResult](payload)
		if err != nil {
			return err
		}
		return encode(os.Stdout, c.Format, res.Step)
	}

	req, err := c.request(s)
	if err != nil {
		return err
	}
	h, err := eval.Package(req)
	if err != nil {
		return err
	}
	return encode(os.Stdout, c.Format, drv.Render(h, drv.StoreResolver{Dir: s.StoreDir}))
}
