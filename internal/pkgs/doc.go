// Package recipes built against a standard environment.
//
// Every recipe comes in two forms: a function returning the configured,
// unfinished [stdenv.Builder] (e.g., [ZlibBuilder]) so callers can adjust it,
// and a function returning a lazy handle (e.g., [Zlib]). [Attrs] names the
// recipes the command line can show and realize.
package pkgs
