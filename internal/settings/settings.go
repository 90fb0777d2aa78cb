package settings

import (
	"errors"
	"fmt"
	"os"

	"github.com/cruciblehq/cruxpkgs/internal/bootstrap"
	"github.com/cruciblehq/cruxpkgs/internal/paths"
	"github.com/cruciblehq/cruxpkgs/internal/platform"
	"github.com/cruciblehq/cruxpkgs/internal/runtime"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/opencontainers/go-digest"
)

var ErrInvalidSettings = errors.New("invalid settings")

const (

	// Default containerd socket address.
	DefaultContainerdAddress = "/run/containerd/containerd.sock"

	// Default containerd namespace for images and sandboxes.
	DefaultContainerdNamespace = "cruxpkgs"

	// Executor running steps in containerd sandboxes.
	ExecutorContainer = "container"

	// Executor running steps directly on the host.
	ExecutorHost = "host"
)

// Resolved configuration.
type Settings struct {
	StoreDir      string            `hcl:"store_dir,optional"`      // Store directory.
	Database      string            `hcl:"database,optional"`       // Store database file.
	Socket        string            `hcl:"socket,optional"`         // Daemon socket.
	Jobs          int               `hcl:"jobs,optional"`           // Concurrent steps, the CPU count when zero.
	Executor      string            `hcl:"executor,optional"`       // "container" or "host".
	Platform      string            `hcl:"platform,optional"`       // Platform to bootstrap, the host when empty.
	FullBootstrap bool              `hcl:"full_bootstrap,optional"` // Walk every bootstrap stage.
	Containerd    *Containerd       `hcl:"containerd,block"`
	Bootstrap     []*BootstrapFiles `hcl:"bootstrap,block"`
}

// Sandbox runtime settings.
type Containerd struct {
	Address      string `hcl:"address,optional"`
	Namespace    string `hcl:"namespace,optional"`
	Snapshotter  string `hcl:"snapshotter,optional"`
	SandboxImage string `hcl:"sandbox_image,optional"` // OCI archive of the sandbox userland.
}

// Bootstrap files of one platform.
type BootstrapFiles struct {
	Platform    string `hcl:"platform,label"` // Arch-os double (e.g., "aarch64-linux").
	BusyboxURL  string `hcl:"busybox_url"`
	BusyboxHash string `hcl:"busybox_hash"`
	ToolsURL    string `hcl:"tools_url"`
	ToolsHash   string `hcl:"tools_hash"`
}

// Returns the settings used when no file overrides them.
func Default() *Settings {
	return &Settings{
		StoreDir: paths.Store(),
		Database: paths.Database(),
		Socket:   paths.Socket(),
		Executor: ExecutorContainer,
		Containerd: &Containerd{
			Address:     DefaultContainerdAddress,
			Namespace:   DefaultContainerdNamespace,
			Snapshotter: runtime.DefaultSnapshotter,
		},
	}
}

// Loads settings from a file. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	src, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return Parse(src, path)
}

// Parses HCL settings, filling unset attributes with the defaults.
func Parse(src []byte, filename string) (*Settings, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, diags)
	}

	var s Settings
	if diags := gohcl.DecodeBody(file.Body, nil, &s); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, diags)
	}

	s.fill(Default())
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Fills empty attributes from def.
func (s *Settings) fill(def *Settings) {
	if s.StoreDir == "" {
		s.StoreDir = def.StoreDir
	}
	if s.Database == "" {
		s.Database = def.Database
	}
	if s.Socket == "" {
		s.Socket = def.Socket
	}
	if s.Executor == "" {
		s.Executor = def.Executor
	}
	if s.Containerd == nil {
		s.Containerd = &Containerd{}
	}
	if s.Containerd.Address == "" {
		s.Containerd.Address = def.Containerd.Address
	}
	if s.Containerd.Namespace == "" {
		s.Containerd.Namespace = def.Containerd.Namespace
	}
	if s.Containerd.Snapshotter == "" {
		s.Containerd.Snapshotter = def.Containerd.Snapshotter
	}
}

// Checks that the settings are usable.
func (s *Settings) Validate() error {
	if s.Jobs < 0 {
		return fmt.Errorf("%w: jobs must not be negative, got %d", ErrInvalidSettings, s.Jobs)
	}
	switch s.Executor {
	case ExecutorContainer, ExecutorHost:
	default:
		return fmt.Errorf("%w: unknown executor %q", ErrInvalidSettings, s.Executor)
	}
	if s.Platform != "" {
		if _, err := platform.Parse(s.Platform); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
	}

	seen := make(map[string]bool)
	for _, b := range s.Bootstrap {
		if seen[b.Platform] {
			return fmt.Errorf("%w: duplicate bootstrap block %q", ErrInvalidSettings, b.Platform)
		}
		seen[b.Platform] = true

		p, err := platform.Parse(b.Platform)
		if err != nil {
			return fmt.Errorf("%w: bootstrap %q: %w", ErrInvalidSettings, b.Platform, err)
		}
		if p.Double() != b.Platform {
			return fmt.Errorf("%w: bootstrap %q: expected an arch-os double such as %q", ErrInvalidSettings, b.Platform, p.Double())
		}
		for _, h := range []string{b.BusyboxHash, b.ToolsHash} {
			if _, err := digest.Parse(h); err != nil {
				return fmt.Errorf("%w: bootstrap %q: hash %q: %w", ErrInvalidSettings, b.Platform, h, err)
			}
		}
	}
	return nil
}

// Returns the platform to bootstrap, zero for the host.
func (s *Settings) TargetPlatform() platform.Platform {
	if s.Platform == "" {
		return platform.Platform{}
	}
	return platform.MustParse(s.Platform)
}

// Registers the configured bootstrap files.
func (s *Settings) Apply() {
	for _, b := range s.Bootstrap {
		bootstrap.Register(b.Platform, bootstrap.Files{
			BusyboxURL:  b.BusyboxURL,
			BusyboxHash: b.BusyboxHash,
			ToolsURL:    b.ToolsURL,
			ToolsHash:   b.ToolsHash,
		})
	}
}
