package realize

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cruciblehq/cruxpkgs/internal/platform"
	"github.com/cruciblehq/cruxpkgs/internal/runtime"
)

// Scratch directory of a step inside its sandbox.
const sandboxBuildDir = "/build"

// Number of trailing stderr lines quoted when a builder fails.
const stderrLines = 20

// The sandbox operations the container executor needs.
type Sandbox interface {
	MkdirAll(ctx context.Context, dir string) error
	CopyTo(ctx context.Context, r io.Reader, destDir string) error
	CopyFrom(ctx context.Context, w io.Writer, p string) error
	Exec(ctx context.Context, p runtime.Process) (*runtime.ExecResult, error)
	Destroy(ctx context.Context)
}

// Starts a sandbox for the named step on an OCI platform.
type SandboxStarter func(ctx context.Context, platform, step string) (Sandbox, error)

// Runs each step in its own sandbox container.
type ContainerExecutor struct {
	start SandboxStarter
	log   io.Writer
}

// Creates an executor starting sandboxes from an imported image tag.
func NewContainerExecutor(rt *runtime.Runtime, image string) *ContainerExecutor {
	return NewSandboxExecutor(func(ctx context.Context, platform, step string) (Sandbox, error) {
		return rt.StartSandbox(ctx, image, platform, step)
	})
}

// Creates an executor over an arbitrary sandbox starter.
func NewSandboxExecutor(start SandboxStarter) *ContainerExecutor {
	return &ContainerExecutor{start: start}
}

// Streams builder output to w instead of capturing it.
func (e *ContainerExecutor) WithLog(w io.Writer) *ContainerExecutor {
	e.log = w
	return e
}

// Runs a step in a fresh sandbox and copies its outputs into the store.
//
// The sandbox is destroyed when the step finishes, whatever the outcome.
func (e *ContainerExecutor) Execute(ctx context.Context, step *Step) error {
	r := step.Rendered

	oci, err := ociPlatform(r.System)
	if err != nil {
		return err
	}

	sb, err := e.start(ctx, oci, r.Name)
	if err != nil {
		return err
	}
	defer sb.Destroy(context.WithoutCancel(ctx))

	for _, dir := range []string{step.StoreDir, sandboxBuildDir} {
		if err := sb.MkdirAll(ctx, dir); err != nil {
			return err
		}
	}

	for _, input := range step.Inputs {
		if err := copyIn(ctx, sb, input); err != nil {
			return err
		}
	}

	slog.Debug("running builder", "name", r.Name, "builder", r.Builder)

	result, err := sb.Exec(ctx, runtime.Process{
		Args:    append([]string{r.Builder}, r.Args...),
		Env:     stepEnviron(r, sandboxBuildDir),
		Workdir: sandboxBuildDir,
		Stdout:  e.log,
		Stderr:  e.log,
	})
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("%w: %s exited with code %d\n%s", ErrCommandFailed, r.Name, result.ExitCode, tail(result.Stderr, stderrLines))
	}

	for _, o := range r.Outputs {
		if err := copyOut(ctx, sb, o.Path); err != nil {
			return fmt.Errorf("%w: %w", ErrMissingOutput, err)
		}
	}

	return nil
}

// Converts a step's platform triple to the OCI form the runtime expects.
//
// An empty system selects the host platform.
func ociPlatform(system string) (string, error) {
	if system == "" {
		return "", nil
	}
	p, err := platform.Parse(system)
	if err != nil {
		return "", err
	}
	s, ok := p.OCIString()
	if !ok {
		return "", fmt.Errorf("%w: no OCI platform for %s", platform.ErrInvalidPlatform, system)
	}
	return s, nil
}

// Returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
