package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
)

const (

	// Default snapshotter for sandbox filesystems. fuse-overlayfs provides
	// overlay semantics without mount(2), so the daemon can run unprivileged.
	DefaultSnapshotter = "fuse-overlayfs"

	// OCI runtime shim for running containers.
	ociRuntime = "io.containerd.runc.v2"

	// Prefix of every sandbox container ID.
	sandboxPrefix = "cruxpkgs-"

	// Label present on every sandbox container.
	labelSandbox = "org.cruxpkgs.sandbox"

	// Label holding the display name of the step a sandbox was created for.
	labelStep = "org.cruxpkgs.step"
)

// Connection settings.
type Config struct {
	Address     string // Path of the containerd socket.
	Namespace   string // containerd namespace scoping every operation.
	Snapshotter string // Snapshotter name, [DefaultSnapshotter] when empty.
}

// Manages the containerd client and provides image and sandbox operations.
type Runtime struct {
	client      *containerd.Client
	snapshotter string
}

// Creates a runtime connected to the containerd socket.
//
// The runtime must be closed when no longer needed.
func New(cfg Config) (*Runtime, error) {
	client, err := containerd.New(cfg.Address, containerd.WithDefaultNamespace(cfg.Namespace))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	snapshotter := cfg.Snapshotter
	if snapshotter == "" {
		snapshotter = DefaultSnapshotter
	}

	return &Runtime{client: client, snapshotter: snapshotter}, nil
}

// Closes the containerd client connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Imports a sandbox OCI archive and unpacks it for the host platform.
//
// Returns the tag the image was stored under. The tag is derived from the
// archive path, so importing the same archive again replaces the previous
// image instead of accumulating copies.
func (rt *Runtime) ImportImage(ctx context.Context, path string) (string, error) {
	tag := imageTag(path)

	source, err := rt.importArchive(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := rt.tagImage(ctx, source, tag); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := rt.unpackImage(ctx, tag, defaultPlatform()); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	slog.Debug("sandbox image imported", "path", path, "tag", tag)
	return tag, nil
}

// Starts a sandbox for one build step from an imported image.
//
// The sandbox gets a unique ID, a fresh snapshot and a long-running task
// (sleep infinity) that later execs attach to. Building for a platform
// other than the host requires QEMU / binfmt_misc support in the kernel.
func (rt *Runtime) StartSandbox(ctx context.Context, tag, platform, step string) (*Sandbox, error) {
	if platform == "" {
		platform = defaultPlatform()
	}

	if err := rt.unpackImage(ctx, tag, platform); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	s := &Sandbox{
		client:      rt.client,
		id:          newSandboxID(),
		platform:    platform,
		snapshotter: rt.snapshotter,
	}

	image, err := rt.resolveImage(ctx, tag, platform)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	ctr, err := s.create(ctx, image, step)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := s.startTask(ctx, ctr); err != nil {
		ctr.Delete(ctx, containerd.WithSnapshotCleanup)
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	slog.Debug("sandbox started", "id", s.id, "step", step, "platform", platform)
	return s, nil
}

// Returns every sandbox container in the namespace.
func (rt *Runtime) Sandboxes(ctx context.Context) ([]*Sandbox, error) {
	ctrs, err := rt.client.Containers(ctx, sandboxFilter())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	out := make([]*Sandbox, 0, len(ctrs))
	for _, ctr := range ctrs {
		out = append(out, rt.Sandbox(ctr.ID()))
	}
	return out, nil
}

// Destroys every sandbox container, returning how many were removed.
//
// Used at daemon start to clean up after a crash.
func (rt *Runtime) Prune(ctx context.Context) (int, error) {
	sandboxes, err := rt.Sandboxes(ctx)
	if err != nil {
		return 0, err
	}
	for _, s := range sandboxes {
		s.Destroy(ctx)
	}
	if len(sandboxes) > 0 {
		slog.Info("pruned stale sandboxes", "count", len(sandboxes))
	}
	return len(sandboxes), nil
}

// Removes an image and all containers created from it.
func (rt *Runtime) DestroyImage(ctx context.Context, tag string) error {
	ctrs, err := rt.client.Containers(ctx, fmt.Sprintf("image==%s", tag))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	for _, ctr := range ctrs {
		if task, taskErr := ctr.Task(ctx, nil); taskErr == nil {
			task.Kill(ctx, syscall.SIGKILL)
			task.Delete(ctx, containerd.WithProcessKill)
		}
		if err := ctr.Delete(ctx, containerd.WithSnapshotCleanup); err != nil && !errdefs.IsNotFound(err) {
			return fmt.Errorf("%w: %w", ErrRuntime, err)
		}
	}

	if err := rt.client.ImageService().Delete(ctx, tag); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	slog.Debug("image destroyed", "tag", tag)
	return nil
}

// Returns a handle for an existing sandbox.
//
// The container is not loaded or verified; it is resolved lazily by the
// handle's methods.
func (rt *Runtime) Sandbox(id string) *Sandbox {
	return &Sandbox{
		client:      rt.client,
		id:          id,
		platform:    defaultPlatform(),
		snapshotter: rt.snapshotter,
	}
}

// Imports an OCI archive into the content store.
//
// The archive must contain exactly one image. A multi-platform archive has
// a single index entry; platform selection happens in resolveImage.
func (rt *Runtime) importArchive(ctx context.Context, path string) (images.Image, error) {
	fh, err := os.Open(path)
	if err != nil {
		return images.Image{}, err
	}
	defer fh.Close()

	imported, err := rt.client.Import(ctx, fh)
	if err != nil {
		return images.Image{}, err
	}

	switch len(imported) {
	case 0:
		return images.Image{}, ErrEmptyArchive
	case 1:
		return imported[0], nil
	default:
		return images.Image{}, ErrMultipleImages
	}
}

// Tags an imported image, replacing the target of an existing tag.
//
// The source record is removed when its name differs from the tag.
func (rt *Runtime) tagImage(ctx context.Context, source images.Image, tag string) error {
	is := rt.client.ImageService()

	img := images.Image{
		Name:   tag,
		Target: source.Target,
	}

	if _, err := is.Create(ctx, img); err != nil {
		if !errdefs.IsAlreadyExists(err) {
			return err
		}
		if _, err := is.Update(ctx, img, "target"); err != nil {
			return err
		}
	}

	if source.Name != tag {
		_ = is.Delete(ctx, source.Name)
	}

	return nil
}

// Unpacks the image layers for a platform into the snapshotter.
func (rt *Runtime) unpackImage(ctx context.Context, tag, platform string) error {
	image, err := rt.resolveImage(ctx, tag, platform)
	if err != nil {
		return err
	}

	return image.Unpack(ctx, rt.snapshotter)
}

// Looks up a tagged image and selects the manifest for a platform.
func (rt *Runtime) resolveImage(ctx context.Context, tag, platform string) (containerd.Image, error) {
	p, err := platforms.Parse(platform)
	if err != nil {
		return nil, err
	}

	img, err := rt.client.ImageService().Get(ctx, tag)
	if err != nil {
		return nil, err
	}

	return containerd.NewImageWithPlatform(rt.client, img, platforms.Only(p)), nil
}

// Returns the image tag of an archive path.
//
// The path is digested so the tag is a valid reference whatever characters
// the path contains.
func imageTag(path string) string {
	return fmt.Sprintf("import/%s:latest", digest.FromString(path).Encoded())
}

// Returns a fresh sandbox container ID.
func newSandboxID() string {
	return sandboxPrefix + uuid.NewString()
}

// Returns the containerd filter selecting sandbox containers.
func sandboxFilter() string {
	return fmt.Sprintf("labels.%q==true", labelSandbox)
}

// Returns the OCI platform of the host (e.g., "linux/amd64").
func defaultPlatform() string {
	return platforms.Format(platforms.DefaultSpec())
}
