package pkgs

import (
	"maps"
	"slices"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/stdenv"
)

// Returns a package built against an environment.
type Attr func(env stdenv.Stdenv) drv.Handle

// Packages addressable by name from the command line.
var Attrs = map[string]Attr{
	"hello": Hello,
	"zlib": func(env stdenv.Stdenv) drv.Handle {
		return Zlib(env, DefaultZlibOptions())
	},
	"perl": func(env stdenv.Stdenv) drv.Handle {
		return Perl(env, PerlOptions{Zlib: Zlib(env, DefaultZlibOptions())})
	},
	"libiconv": func(env stdenv.Stdenv) drv.Handle {
		return Libiconv(env, DefaultLibiconvOptions())
	},
	"pkg-config": func(env stdenv.Stdenv) drv.Handle {
		return PkgConfig(env, PkgConfigOptions{Libiconv: Libiconv(env, DefaultLibiconvOptions())})
	},
	"curl": func(env stdenv.Stdenv) drv.Handle {
		return Curl(env, CurlOptions{
			Zlib: Zlib(env, DefaultZlibOptions()),
			Perl: Perl(env, PerlOptions{}),
		})
	},
}

// Returns the attribute names in sorted order.
func Names() []string {
	return slices.Sorted(maps.Keys(Attrs))
}

// Returns the package named attr and whether it exists.
func Lookup(env stdenv.Stdenv, attr string) (drv.Handle, bool) {
	f, ok := Attrs[attr]
	if !ok {
		return drv.Handle{}, false
	}
	return f(env), true
}
