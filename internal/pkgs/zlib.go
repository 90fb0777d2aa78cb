package pkgs

import (
	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/stdenv"
)

const zlibVersion = "1.3.1"

// Selects the libraries zlib installs.
type ZlibOptions struct {
	Shared         bool // Install the shared library.
	Static         bool // Install the static library.
	SplitStaticOut bool // Move the static library to a "static" output.
}

// Returns the default zlib options: shared and static libraries, with the
// static one in its own output.
func DefaultZlibOptions() ZlibOptions {
	return ZlibOptions{Shared: true, Static: true, SplitStaticOut: true}
}

// The zlib compression library.
//
// The library selection is passed to zlib's configure script as a single
// flag word: the static flag followed by the shared flag. Headers and man
// pages go to the dev output.
func ZlibBuilder(env stdenv.Stdenv, opts ZlibOptions) *stdenv.Builder {
	src := FetchURL(
		"https://www.zlib.net/fossils/zlib-"+zlibVersion+".tar.gz",
		"sha512:bd4161b6a7f3cf5b1cd59acb4607f9379b6011766655488ecfdf00ae54c9264444df09309cfc4e69929b66535a1701692594c5d29a5ee5ac0faca3d42a91e6fe",
	)

	postInstall := "moveToOutput include \"$dev\"\nmoveToOutput share/man \"$dev\""
	if opts.SplitStaticOut {
		postInstall += "\nmoveToOutput lib/libz.a \"$static\""
	}

	var flags string
	if opts.Static {
		flags += "--static"
	}
	if opts.Shared {
		flags += "--shared"
	}

	return env.MakeDerivation().
		Name("zlib").
		Version(zlibVersion).
		Src(src.Out()).
		InputBool("STRICT_DEPS", true).
		Out("out").
		Out("dev").
		Optional(opts.SplitStaticOut, func(b *stdenv.Builder) *stdenv.Builder {
			return b.Out("static")
		}).
		Optional(flags != "", func(b *stdenv.Builder) *stdenv.Builder {
			return b.ConfigureFlags(drv.Str(flags))
		}).
		InputBool("DONT_DISABLE_STATIC", true).
		InputBool("DONT_ADD_STATIC_CONFIGURE_FLAGS", true).
		InputBool("SET_OUTPUT_FLAG", false).
		Input("OUTPUT_DOC", drv.Str("dev")).
		PostInstall(postInstall).
		InputBool("ENABLE_PARALLEL_BUILDING", true).
		DoCheck().
		Optional(opts.Shared, func(b *stdenv.Builder) *stdenv.Builder {
			return b.MakeFlags(drv.Str("SHARED_MODE=1"))
		})
}

func Zlib(env stdenv.Stdenv, opts ZlibOptions) drv.Handle {
	return ZlibBuilder(env, opts).Lazy()
}
