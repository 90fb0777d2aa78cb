package pkgs

import (
	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/stdenv"
)

const libiconvVersion = "1.17"

// Selects the libraries libiconv installs.
type LibiconvOptions struct {
	Shared bool // Install the shared library.
	Static bool // Install the static library.
}

// Returns the default libiconv options: shared library only.
func DefaultLibiconvOptions() LibiconvOptions {
	return LibiconvOptions{Shared: true}
}

// The GNU character set conversion library.
func LibiconvBuilder(env stdenv.Stdenv, opts LibiconvOptions) *stdenv.Builder {
	src := FetchURL(
		"https://ftp.gnu.org/gnu/libiconv/libiconv-"+libiconvVersion+".tar.gz",
		"sha512:b55dc41b6ab80e5e19fcaa920ea69070c4476a4928d2df5a36115f9e933e49e9b3bf4e512f2e736e11c03eac48ad5ddc98d74375a864458b709f5eba7d97721c",
	)

	return env.MakeDerivation().
		Name("libiconv").
		Version(libiconvVersion).
		Src(src.Out()).
		InputBool("ENABLE_PARALLEL_BUILDING", true).
		ConfigureFlags(enableFlag("static", opts.Static), enableFlag("shared", opts.Shared)).
		Optional(!opts.Shared, func(b *stdenv.Builder) *stdenv.Builder {
			// The preload library is only built alongside the shared one.
			return b.PostPatch("sed -i -e '/preload/d' Makefile.in")
		})
}

func Libiconv(env stdenv.Stdenv, opts LibiconvOptions) drv.Handle {
	return LibiconvBuilder(env, opts).Lazy()
}

// Returns "--enable-<feature>" or "--disable-<feature>".
func enableFlag(feature string, on bool) drv.Value {
	if on {
		return drv.Str("--enable-" + feature)
	}
	return drv.Str("--disable-" + feature)
}
