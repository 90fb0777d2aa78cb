package bootstrap

import (
	_ "embed"
	"maps"
	"slices"
	"sync"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/fetch"
	"github.com/cruciblehq/cruxpkgs/internal/platform"
)

// Unpacks the bootstrap tools tarball with busybox.
//
//go:embed scripts/unpack-bootstrap-tools.sh
var unpackScript string

// Location and hash of a platform's bootstrap files.
type Files struct {
	BusyboxURL  string // Static busybox used to unpack the tools.
	BusyboxHash string // Digest of the busybox binary.
	ToolsURL    string // Tarball with the bootstrap toolchain.
	ToolsHash   string // Digest of the tarball.
}

const mirror = "http://tarballs.nixos.org/stdenv/"

var (
	filesMu sync.RWMutex
	files   = map[string]Files{
		"x86_64-linux": {
			BusyboxURL:  mirror + "x86_64-unknown-linux-gnu/82b583ba2ba2e5706b35dbe23f31362e62be2a9d/busybox",
			BusyboxHash: "sha512:8f7120abb136e5f7dd66cbc764d107908487cb36a3fd719ab30e1545dd4ee03fb96f4304dc04864fa6228ff11282ef2bcb9823a9030b11bfba3ca3f071e387e9",
			ToolsURL:    mirror + "x86_64-unknown-linux-gnu/82b583ba2ba2e5706b35dbe23f31362e62be2a9d/bootstrap-tools.tar.xz",
			ToolsHash:   "sha512:ac4ddac2eae37b85f75b1c2649fd37f8071bf0ef0305204e98d9367f4f7811f55de72f71f30b749e17a78f5e2fa7f8c6b643134e8eb87697a5c7657b4dc96e24",
		},
	}
)

// Registers the bootstrap files of a platform, replacing any previous
// entry. The key is the platform's arch-os double (e.g., "aarch64-linux").
func Register(double string, f Files) {
	filesMu.Lock()
	defer filesMu.Unlock()
	files[double] = f
}

// Returns the doubles of every platform with registered bootstrap files.
func Supported() []string {
	filesMu.RLock()
	defer filesMu.RUnlock()
	return slices.Sorted(maps.Keys(files))
}

// Returns the bootstrap files of a platform.
func lookup(p platform.Platform) (Files, bool) {
	filesMu.RLock()
	defer filesMu.RUnlock()
	f, ok := files[p.Double()]
	return f, ok
}

// Returns a step unpacking the bootstrap tools of a platform.
//
// The busybox binary and the tools tarball are fixed-output fetches. The
// unpack step runs busybox's own shell, so it needs nothing from the host.
// Panics with an unsupported error when the platform has no bootstrap
// files.
func Tools(p platform.Platform) drv.Handle {
	f, ok := lookup(p)
	if !ok {
		drv.Unsupported("no bootstrap tools for %s", p)
	}

	busybox := fetch.URL(fetch.URLOptions{
		Name:       "busybox",
		URL:        f.BusyboxURL,
		Hash:       f.BusyboxHash,
		Executable: true,
	})
	tarball := fetch.URL(fetch.URLOptions{
		Name: "bootstrap-tools.tar.xz",
		URL:  f.ToolsURL,
		Hash: f.ToolsHash,
	})

	d := &drv.Derivation{
		Name:    "bootstrap-tools",
		Builder: busybox.Out(),
		Args:    []drv.Value{drv.Str("ash"), drv.Str("-e"), drv.Str("-c"), drv.Str(unpackScript)},
		System:  p.String(),
	}
	d.Env.Set("busybox", busybox.Out())
	d.Env.Set("tarball", tarball.Out())

	// Compiler traits read by the stdenv hooks. The bootstrap compiler is a
	// GNU C/C++ toolchain too old for the newer hardening flags.
	d.Env.Set("langC", drv.Str("1"))
	d.Env.Set("langCC", drv.Str("1"))
	d.Env.Set("isGNU", drv.Str("1"))
	d.Env.Set("hardeningunsupportedflags", drv.Strs(
		"fortify3",
		"shadowstack",
		"pacret",
		"stackclashprotection",
		"trivialautovarinit",
		"zerocallusedregs",
	))

	return drv.New(d)
}
