package platform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/containerd/platforms"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

var ErrInvalidPlatform = errors.New("invalid platform")

// A machine identity in GNU triple form.
type Platform struct {
	Arch   string // CPU architecture (e.g., "x86_64").
	Vendor string // Vendor field (e.g., "unknown", "apple").
	OS     string // Kernel (e.g., "linux").
	ABI    string // ABI or libc flavour (e.g., "gnu"), may be empty.
}

// GNU architecture names keyed by OCI architecture and variant.
var ociArch = map[string]string{
	"amd64":    "x86_64",
	"arm64":    "aarch64",
	"386":      "i686",
	"riscv64":  "riscv64",
	"ppc64le":  "powerpc64le",
	"s390x":    "s390x",
	"arm/v7":   "armv7l",
	"arm/v6":   "armv6l",
	"loong64":  "loongarch64",
	"mips64le": "mips64el",
}

// Parses a GNU triple, an "arch-os" double or an OCI platform string.
func Parse(s string) (Platform, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Platform{}, fmt.Errorf("%w: empty string", ErrInvalidPlatform)
	}

	if strings.Contains(s, "/") {
		p, err := platforms.Parse(s)
		if err != nil {
			return Platform{}, fmt.Errorf("%w: %w", ErrInvalidPlatform, err)
		}
		return FromOCI(p)
	}

	parts := strings.Split(s, "-")
	for _, part := range parts {
		if part == "" {
			return Platform{}, fmt.Errorf("%w: %q", ErrInvalidPlatform, s)
		}
	}

	switch len(parts) {
	case 2:
		return withDefaults(parts[0], parts[1]), nil
	case 3:
		return Platform{Arch: parts[0], Vendor: parts[1], OS: parts[2]}, nil
	case 4:
		return Platform{Arch: parts[0], Vendor: parts[1], OS: parts[2], ABI: parts[3]}, nil
	default:
		return Platform{}, fmt.Errorf("%w: %q", ErrInvalidPlatform, s)
	}
}

// Parses a platform, panicking on malformed input. Intended for constants.
func MustParse(s string) Platform {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Converts an OCI platform into a GNU triple.
func FromOCI(p ocispec.Platform) (Platform, error) {
	p = platforms.Normalize(p)

	key := p.Architecture
	if p.Variant != "" && p.Architecture == "arm" {
		key += "/" + p.Variant
	}
	arch, ok := ociArch[key]
	if !ok {
		return Platform{}, fmt.Errorf("%w: unknown architecture %q", ErrInvalidPlatform, key)
	}

	return withDefaults(arch, p.OS), nil
}

// Returns the platform of the running machine.
func Host() Platform {
	p, err := FromOCI(platforms.DefaultSpec())
	if err != nil {
		panic(err)
	}
	return p
}

// Fills the vendor and ABI conventionally used for an OS.
func withDefaults(arch, os string) Platform {
	switch os {
	case "darwin":
		return Platform{Arch: arch, Vendor: "apple", OS: "darwin"}
	case "linux":
		abi := "gnu"
		if strings.HasPrefix(arch, "arm") {
			abi = "gnueabihf"
		}
		return Platform{Arch: arch, Vendor: "unknown", OS: "linux", ABI: abi}
	default:
		return Platform{Arch: arch, Vendor: "unknown", OS: os}
	}
}

// Returns the GNU triple.
func (p Platform) String() string {
	s := p.Arch + "-" + p.Vendor + "-" + p.OS
	if p.ABI != "" {
		s += "-" + p.ABI
	}
	return s
}

// Returns the short "arch-os" form (e.g., "x86_64-linux").
func (p Platform) Double() string {
	return p.Arch + "-" + p.OS
}

// Whether the platform is set.
func (p Platform) IsZero() bool {
	return p == Platform{}
}

// Converts the platform to its OCI form for the container runtime.
//
// Returns false when the architecture has no OCI equivalent.
func (p Platform) OCI() (ocispec.Platform, bool) {
	for key, arch := range ociArch {
		if arch != p.Arch {
			continue
		}
		out := ocispec.Platform{OS: p.OS, Architecture: key}
		if a, variant, ok := strings.Cut(key, "/"); ok {
			out.Architecture = a
			out.Variant = variant
		}
		return platforms.Normalize(out), true
	}
	return ocispec.Platform{}, false
}

// Returns the OCI platform string (e.g., "linux/amd64").
func (p Platform) OCIString() (string, bool) {
	o, ok := p.OCI()
	if !ok {
		return "", false
	}
	return platforms.Format(o), true
}
