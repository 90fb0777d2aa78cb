// Loads the cruxpkgs configuration file.
//
// The file is HCL. Every attribute is optional; missing ones take the
// defaults returned by [Default].
//
//	store_dir = "/var/lib/cruxpkgs/store"
//	jobs      = 8
//	executor  = "container"
//
//	containerd {
//	  address       = "/run/containerd/containerd.sock"
//	  namespace     = "cruxpkgs"
//	  sandbox_image = "/var/lib/cruxpkgs/sandbox.tar"
//	}
//
//	bootstrap "aarch64-linux" {
//	  busybox_url  = "http://mirror/busybox"
//	  busybox_hash = "sha256:..."
//	  tools_url    = "http://mirror/bootstrap-tools.tar.xz"
//	  tools_hash   = "sha256:..."
//	}
//
// Bootstrap blocks add or replace the bootstrap files of a platform.
package settings
