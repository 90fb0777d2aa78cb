package pkgs

import (
	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/stdenv"
)

const pkgConfigVersion = "0.29.2"

type PkgConfigOptions struct {
	Libiconv drv.Handle // Character set conversion for the bundled glib. Required.
	Vanilla  bool       // Keep upstream's self-tests that need a full system.
}

// The pkg-config tool, built against its internal copy of glib.
//
// Manual pages and documentation go to their own outputs.
func PkgConfigBuilder(env stdenv.Stdenv, opts PkgConfigOptions) *stdenv.Builder {
	if opts.Libiconv.IsZero() {
		drv.Violation("pkg-config requires libiconv")
	}

	src := FetchURL(
		"https://pkg-config.freedesktop.org/releases/pkg-config-"+pkgConfigVersion+".tar.gz",
		"sha256:6fc69c01688c9458a57eb9a1664c9aba372ccda420a02bf4429fe610e7e7d591",
	)

	postPatch := "sed -i -e 's|/usr/bin/uname|uname|g' ./config.guess ./glib/config.guess"
	if !opts.Vanilla {
		postPatch += "\nrm -f check/check-requires-private check/check-gtk check/missing"
	}

	return env.MakeDerivation().
		Name("pkg-config").
		Version(pkgConfigVersion).
		Out("out").
		Out("man").
		Out("doc").
		Src(src.Out()).
		InputBool("STRICT_DEPS", true).
		InputBool("ENABLE_PARALLEL_BUILDING", true).
		PostPatch(postPatch).
		DepsBuildHost(opts.Libiconv.Out()).
		ConfigureFlags(drv.Str("--with-internal-glib")).
		DoCheck().
		PostInstall(`rm -f "$out"/bin/*-pkg-config`)
}

func PkgConfig(env stdenv.Stdenv, opts PkgConfigOptions) drv.Handle {
	return PkgConfigBuilder(env, opts).Lazy()
}
