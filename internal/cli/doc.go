// Parses flags, loads settings and configures logging for cruxpkgs.
//
// The command accepts the following global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Stream builder output.
//	-d, --debug     Enable debug output.
//	-c, --config    Settings file.
//	-s, --socket    Unix socket path of the daemon.
//
// Flags override build-time defaults set via linker flags. After parsing, the
// global logger is reconfigured to reflect the final level before the
// selected subcommand runs.
//
// Evaluation commands (show, stdenv, stages) never touch the store. The
// realize command builds in-process unless --daemon is given, in which case
// the request is sent to a running daemon started with "cruxpkgs start".
package cli
