package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Sequence counter for exec process identifiers.
var execSeq atomic.Uint64

// Returns a unique exec process identifier.
func nextExecID() string {
	return fmt.Sprintf("exec-%d", execSeq.Add(1))
}

// A process to run inside a sandbox.
type Process struct {
	Args    []string  // Executable and arguments, run without a shell.
	Env     []string  // "key=value" entries overriding the image environment.
	Workdir string    // Working directory, the image default when empty.
	Stdout  io.Writer // Standard output, captured when nil.
	Stderr  io.Writer // Standard error, captured when nil.
}

// Outcome of a process.
type ExecResult struct {
	ExitCode int    // Exit code of the process.
	Stdout   string // Captured standard output, empty when Process.Stdout was set.
	Stderr   string // Captured standard error, empty when Process.Stderr was set.
}

// Runs a process inside the sandbox and waits for it to exit.
//
// A non-zero exit code is not an error; the caller decides.
func (s *Sandbox) Exec(ctx context.Context, p Process) (*ExecResult, error) {
	pspec, err := s.buildProcessSpec(ctx, p.Env, p.Workdir, p.Args...)
	if err != nil {
		return nil, wrap(err)
	}

	var stdout, stderr bytes.Buffer
	out, errOut := p.Stdout, p.Stderr
	if out == nil {
		out = &stdout
	}
	if errOut == nil {
		errOut = &stderr
	}

	code, err := s.execProcess(ctx, pspec, nil, out, errOut)
	if err != nil {
		return nil, err
	}

	return &ExecResult{
		ExitCode: code,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// Builds an OCI process spec from the container's own spec with args, env
// and workdir overridden.
func (s *Sandbox) buildProcessSpec(ctx context.Context, env []string, workdir string, args ...string) (*specs.Process, error) {
	ctr, err := s.client.LoadContainer(ctx, s.id)
	if err != nil {
		return nil, err
	}

	spec, err := ctr.Spec(ctx)
	if err != nil {
		return nil, err
	}

	pspec := *spec.Process
	pspec.Terminal = false
	pspec.Args = args

	if len(env) > 0 {
		pspec.Env = mergeEnv(pspec.Env, env)
	}
	if workdir != "" {
		pspec.Cwd = workdir
	}

	return &pspec, nil
}

// Merges override entries on top of a base environment.
//
// Keys keep the position of their first appearance so the result is
// reproducible. Entries without "=" are dropped.
func mergeEnv(base, overrides []string) []string {
	index := make(map[string]int, len(base)+len(overrides))
	result := make([]string, 0, len(base)+len(overrides))

	for _, entry := range append(append([]string(nil), base...), overrides...) {
		k, _, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if i, seen := index[k]; seen {
			result[i] = entry
			continue
		}
		index[k] = len(result)
		result = append(result, entry)
	}
	return result
}

// Starts a process inside the running task, waits for it and returns the
// exit code.
//
// The process is attached to the task as an additional exec, so the task
// must already be running (see [Sandbox.startTask]). When stdin is given,
// the process stdin is closed once the reader is exhausted: the shim holds
// both ends of the stdin FIFO and never propagates EOF on its own.
func (s *Sandbox) execProcess(ctx context.Context, pspec *specs.Process, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	task, err := s.loadTask(ctx)
	if err != nil {
		return 0, err
	}

	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	var stdinDone <-chan struct{}
	if stdin != nil {
		stdin, stdinDone = notifyEOF(stdin)
	}

	process, err := task.Exec(ctx, nextExecID(), pspec, cio.NewCreator(
		cio.WithStreams(stdin, stdout, stderr),
	))
	if err != nil {
		return 0, wrap(err)
	}

	return awaitProcess(ctx, process, stdinDone)
}

// Loads the sandbox's running task.
func (s *Sandbox) loadTask(ctx context.Context) (containerd.Task, error) {
	ctr, err := s.client.LoadContainer(ctx, s.id)
	if err != nil {
		return nil, wrap(err)
	}

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		return nil, wrap(err)
	}

	return task, nil
}

// Starts an exec process, waits for it to exit and deletes it.
func awaitProcess(ctx context.Context, process containerd.Process, stdinDone <-chan struct{}) (int, error) {
	statusC, err := process.Wait(ctx)
	if err != nil {
		process.Delete(ctx)
		return 0, wrap(err)
	}

	if err := process.Start(ctx); err != nil {
		process.Delete(ctx)
		return 0, wrap(err)
	}

	if stdinDone != nil {
		go func() {
			select {
			case <-stdinDone:
				process.CloseIO(ctx, containerd.WithStdinCloser)
			case <-ctx.Done():
			}
		}()
	}

	exitStatus := <-statusC
	process.Delete(ctx)

	code, _, err := exitStatus.Result()
	if err != nil {
		return 0, wrap(err)
	}

	return int(code), nil
}

func wrap(err error) error {
	return fmt.Errorf("%w: %w", ErrRuntime, err)
}
