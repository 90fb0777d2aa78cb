package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	name = "cruxpkgs"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the directory for runtime files (sockets, PIDs).
//
//	Linux:   $XDG_RUNTIME_DIR/cruxpkgs or /run/user/<uid>/cruxpkgs
//	macOS:   ~/Library/Caches/cruxpkgs/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, name)
	}
	return filepath.Join(xdg.CacheHome, name, "run")
}

// Default path to the daemon's Unix domain socket.
//
//	Linux:   $XDG_RUNTIME_DIR/cruxpkgs/cruxpkgs.sock
func Socket() string {
	return filepath.Join(Runtime(), name+".sock")
}

// Default path to the daemon's PID file.
//
//	Linux:   $XDG_RUNTIME_DIR/cruxpkgs/cruxpkgs.pid
func PIDFile() string {
	return filepath.Join(Runtime(), name+".pid")
}

// Default path to the configuration file.
//
//	Linux:   $XDG_CONFIG_HOME/cruxpkgs/config.hcl
//	macOS:   ~/Library/Application Support/cruxpkgs/config.hcl
func Config() string {
	return filepath.Join(xdg.ConfigHome, name, "config.hcl")
}

// Directory holding the store and its database.
//
//	Linux:   $XDG_DATA_HOME/cruxpkgs
//	macOS:   ~/Library/Application Support/cruxpkgs
func Data() string {
	return filepath.Join(xdg.DataHome, name)
}

// Default store directory.
func Store() string {
	return filepath.Join(Data(), "store")
}

// Default path to the store database.
func Database() string {
	return filepath.Join(Data(), name+".db")
}
