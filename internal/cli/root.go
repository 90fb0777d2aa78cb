package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/cruciblehq/cruxpkgs/internal"
	"github.com/cruciblehq/cruxpkgs/internal/paths"
	"github.com/cruciblehq/cruxpkgs/internal/settings"
	"golang.org/x/term"
)

// Represents the root command for cruxpkgs.
var RootCmd struct {
	Quiet   bool       `short:"q" help:"Suppress informational output."`
	Verbose bool       `short:"v" help:"Stream builder output."`
	Debug   bool       `short:"d" help:"Enable debug output."`
	Config  string     `short:"c" help:"Settings file." placeholder:"PATH" type:"path"`
	Socket  string     `short:"s" help:"Override the daemon Unix socket path." placeholder:"PATH"`
	Show    ShowCmd    `cmd:"" help:"Show the build step of a package."`
	Stdenv  StdenvCmd  `cmd:"" help:"Print the standard environment of a platform."`
	Stages  StagesCmd  `cmd:"" help:"List the bootstrap stages of a platform."`
	Realize RealizeCmd `cmd:"" help:"Build a package into the store."`
	Start   StartCmd   `cmd:"" help:"Start the daemon."`
	Status  StatusCmd  `cmd:"" help:"Show daemon status."`
	Stop    StopCmd    `cmd:"" help:"Stop the daemon."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Bootstrap standard build environments and realize packages.\n\nPackages are described as content-addressed build steps and built in sandboxes."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	s, err := loadSettings()
	if err != nil {
		return err
	}

	return kongCtx.Run(s)
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	if RootCmd.Debug {
		internal.SetDebug(true)
	}
	if RootCmd.Quiet {
		internal.SetQuiet(true)
	}
	if RootCmd.Verbose {
		internal.SetVerbose(true)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: internal.Level()})
	slog.SetDefault(slog.New(handler).With("app", internal.Name))
}

// Loads the settings file and applies flag overrides.
func loadSettings() (*settings.Settings, error) {
	path := RootCmd.Config
	if path == "" {
		path = paths.Config()
	}

	s, err := settings.Load(path)
	if err != nil {
		return nil, err
	}
	if RootCmd.Socket != "" {
		s.Socket = RootCmd.Socket
	}

	s.Apply()

	slog.Debug("settings loaded", "path", path, "store", s.StoreDir, "executor", s.Executor)
	return s, nil
}

// Whether the given file is an interactive terminal.
func isatty(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
