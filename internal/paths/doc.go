// Provides platform-appropriate paths for cruxpkgs.
//
// All paths follow XDG conventions on Linux and platform-native conventions
// on macOS. The name "cruxpkgs" is used as the subdirectory under each base
// path.
package paths
