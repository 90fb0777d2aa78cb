// Identifies the machines involved in a build.
//
// Cross-compilation distinguishes three roles: the build machine running the
// compiler, the host machine running the compiled program, and the target
// machine a compiler-of-compilers emits code for. Each role is a [Platform],
// written as a GNU triple (e.g. "x86_64-unknown-linux-gnu").
//
// [Parse] accepts GNU triples, "arch-os" doubles and OCI platform strings
// such as "linux/amd64", so the same identity can be handed to the container
// runtime and to configure scripts.
package platform
