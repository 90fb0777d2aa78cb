// Builtin fetcher for fixed-output source steps.
//
// [URL] describes a download as a fixed-output build step whose builder is
// the pseudo-executable [Builtin]. Such steps are not run in a sandbox: the
// realizer recognizes the builder and calls [Fetch] on the host, which
// downloads the file, verifies it against the step's fixed hash and
// optionally unpacks it.
//
// Supported archives are .tar, .tar.gz (.tgz), .tar.xz and .tar.zst.
// Gzip streams are decompressed in parallel with pgzip.
package fetch
