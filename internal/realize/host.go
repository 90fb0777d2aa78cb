package realize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
)

// Runs builders directly on the host.
//
// There is no isolation: the builder sees the host filesystem and the
// host's PATH. Input paths are used where they are.
type HostExecutor struct {
	Log io.Writer // Builder output, captured for error reports when nil.
}

// Runs a step's builder in a temporary scratch directory.
func (e *HostExecutor) Execute(ctx context.Context, step *Step) error {
	r := step.Rendered

	buildDir, err := os.MkdirTemp("", "cruxpkgs-build-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	defer os.RemoveAll(buildDir)

	if err := os.MkdirAll(step.StoreDir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	slog.Debug("running builder on host", "name", r.Name, "builder", r.Builder, "dir", buildDir)

	cmd := exec.CommandContext(ctx, r.Builder, r.Args...)
	cmd.Dir = buildDir
	cmd.Env = append([]string{"PATH=" + os.Getenv("PATH")}, stepEnviron(r, buildDir)...)

	var stderr bytes.Buffer
	if e.Log != nil {
		cmd.Stdout = e.Log
		cmd.Stderr = io.MultiWriter(e.Log, &stderr)
	} else {
		cmd.Stderr = &stderr
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s exited with code %d\n%s", ErrCommandFailed, r.Name, exitErr.ExitCode(), tail(stderr.String(), stderrLines))
		}
		return fmt.Errorf("%w: %s: %w", ErrCommandFailed, r.Name, err)
	}

	return nil
}
