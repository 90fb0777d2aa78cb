package runtime

import (
	"context"
	"log/slog"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/containerd/containerd/v2/pkg/oci"
	"github.com/containerd/errdefs"
)

// Lifecycle state of a sandbox.
type State string

const (
	StateRunning    State = "running"
	StateStopped    State = "stopped"
	StateNotCreated State = "not-created"
)

// A container running one build step.
type Sandbox struct {
	client      *containerd.Client
	id          string // containerd container ID.
	platform    string // OCI platform (e.g., "linux/amd64").
	snapshotter string
}

// Returns the container ID.
func (s *Sandbox) ID() string {
	return s.id
}

// Queries the current state of the sandbox.
func (s *Sandbox) State(ctx context.Context) (State, error) {
	ctr, err := s.client.LoadContainer(ctx, s.id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return StateNotCreated, nil
		}
		return "", wrap(err)
	}

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return StateStopped, nil
		}
		return "", wrap(err)
	}

	status, err := task.Status(ctx)
	if err != nil {
		return "", wrap(err)
	}

	if status.Status == containerd.Running {
		return StateRunning, nil
	}
	return StateStopped, nil
}

// Stops the sandbox's task, keeping the container and its snapshot.
//
// Stopping an already stopped sandbox is not an error.
func (s *Sandbox) Stop(ctx context.Context) error {
	ctr, err := s.client.LoadContainer(ctx, s.id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return wrap(err)
	}

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return wrap(err)
	}

	task.Kill(ctx, syscall.SIGKILL)
	if _, err := task.Delete(ctx, containerd.WithProcessKill); err != nil && !errdefs.IsNotFound(err) {
		return wrap(err)
	}

	return nil
}

// Removes the sandbox along with its task and snapshot.
//
// Failures are logged; the handle is invalid afterwards.
func (s *Sandbox) Destroy(ctx context.Context) {
	ctr, err := s.client.LoadContainer(ctx, s.id)
	if err != nil {
		if !errdefs.IsNotFound(err) {
			slog.Warn("failed to load sandbox for destruction", "id", s.id, "error", err)
		}
		return
	}

	if task, err := ctr.Task(ctx, nil); err == nil {
		task.Kill(ctx, syscall.SIGKILL)
		task.Delete(ctx, containerd.WithProcessKill)
	}

	if err := ctr.Delete(ctx, containerd.WithSnapshotCleanup); err != nil && !errdefs.IsNotFound(err) {
		slog.Warn("failed to delete sandbox", "id", s.id, "error", err)
	}
}

// Creates the containerd container.
//
// The default spec gives the sandbox a private network namespace with no
// interfaces. Fixed-output steps, which need the network, run on the host.
func (s *Sandbox) create(ctx context.Context, image containerd.Image, step string) (containerd.Container, error) {
	return s.client.NewContainer(ctx, s.id,
		containerd.WithImage(image),
		containerd.WithSnapshotter(s.snapshotter),
		containerd.WithNewSnapshot(s.id, image),
		containerd.WithRuntime(ociRuntime, nil),
		containerd.WithContainerLabels(map[string]string{
			labelSandbox: "true",
			labelStep:    step,
		}),
		containerd.WithNewSpec(
			oci.WithDefaultSpecForPlatform(s.platform),
			oci.WithImageConfig(image),
			oci.WithProcessArgs("sleep", "infinity"),
		),
	)
}

// Starts the long-running task with no attached IO.
func (s *Sandbox) startTask(ctx context.Context, ctr containerd.Container) error {
	task, err := ctr.NewTask(ctx, cio.NullIO)
	if err != nil {
		return err
	}
	if err := task.Start(ctx); err != nil {
		task.Delete(ctx)
		return err
	}
	return nil
}
