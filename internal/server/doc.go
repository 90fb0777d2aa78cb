// Package server implements the cruxpkgs daemon.
//
// The daemon listens on a Unix domain socket for JSON-encoded commands
// from the cruxpkgs CLI. Each connection carries a single request-response
// exchange: the client sends a newline-delimited JSON envelope, the
// server dispatches the command, and writes the result back before
// closing the connection. A client that disconnects early cancels its
// request.
//
// Packages are evaluated against a freshly bootstrapped environment and
// realized through one shared realizer, so concurrent clients asking for
// overlapping packages build every step only once.
//
// Example usage:
//
//	srv, err := server.New(server.Config{
//	    Realizer: realize.New(opts),
//	    Store:    db,
//	})
//	if err != nil {
//	    return err
//	}
//
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//
//	srv.Wait()
package server
