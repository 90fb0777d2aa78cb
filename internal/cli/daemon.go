package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/cruciblehq/cruxpkgs/internal/protocol"
	"github.com/cruciblehq/cruxpkgs/internal/server"
	"github.com/cruciblehq/cruxpkgs/internal/settings"
)

// Represents the 'cruxpkgs start' command.
type StartCmd struct {
	Jobs int `short:"j" help:"Steps built at once. Defaults to the settings, then the CPU count."`
}

// Executes the start command.
//
// Starts the daemon on a Unix domain socket and blocks until the context is
// cancelled (e.g. via SIGINT or SIGTERM) or a client requests shutdown.
func (c *StartCmd) Run(ctx context.Context, s *settings.Settings) error {
	e, err := newEngine(ctx, s, c.Jobs)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		SocketPath: s.Socket,
		Realizer:   e.realizer,
		Store:      e.store,
		Runtime:    e.runtime,
		Platform:   s.TargetPlatform(),
		Full:       s.FullBootstrap,
	})
	if err != nil {
		e.close()
		return err
	}

	if err := srv.Start(); err != nil {
		e.close()
		return err
	}

	// The server closes the runtime when it stops.
	defer e.store.Close()

	slog.Info("cruxpkgs is running", "store", s.StoreDir, "executor", s.Executor)

	stopped := make(chan struct{})
	go func() {
		srv.Wait()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
	case <-stopped:
	}

	slog.Info("shutting down")
	return srv.Stop()
}

// Represents the 'cruxpkgs status' command.
type StatusCmd struct {
	Format string `short:"f" enum:"json,yaml" default:"yaml" help:"Output format (json, yaml)."`
}

// Executes the status command.
func (c *StatusCmd) Run(ctx context.Context, s *settings.Settings) error {
	_, payload, err := protocol.Call(ctx, s.Socket, protocol.CmdStatus, nil)
	if err != nil {
		return err
	}
	res, err := protocol.DecodePayload[protocol.StatusResult](payload)
	if err != nil {
		return err
	}
	return encode(os.Stdout, c.Format, res)
}

// Represents the 'cruxpkgs stop' command.
type StopCmd struct{}

// Executes the stop command.
func (c *StopCmd) Run(ctx context.Context, s *settings.Settings) error {
	if _, _, err := protocol.Call(ctx, s.Socket, protocol.CmdShutdown, nil); err != nil {
		return err
	}
	slog.Info("daemon stopping")
	return nil
}
