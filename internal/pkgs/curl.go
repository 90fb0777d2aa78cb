package pkgs

import (
	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/stdenv"
)

const curlVersion = "8.4.0"

type CurlOptions struct {
	Zlib drv.Handle // zlib for compressed transfers, zero to build without.
	Perl drv.Handle // perl for generating the manual, zero to skip it.
}

// The curl command line tool and libcurl, without TLS.
func CurlBuilder(env stdenv.Stdenv, opts CurlOptions) *stdenv.Builder {
	src := FetchURL(
		"https://curl.se/download/curl-"+curlVersion+".tar.xz",
		"sha256:16c62a9c4af0f703d28bda6d7bbf37ba47055ad3414d70dec63e2e6336f2a82d",
	)

	b := env.MakeDerivation().
		Name("curl").
		Version(curlVersion).
		Src(src.Out()).
		ConfigureFlags(drv.Str("--without-ssl"), drv.Str("--disable-ldap"))

	if opts.Zlib.IsZero() {
		b.ConfigureFlags(drv.Str("--without-zlib"))
	} else {
		b.PropagatedHostTarget(opts.Zlib.Out(), opts.Zlib.Output("dev"))
	}

	return b.Optional(opts.Perl.IsZero(), func(b *stdenv.Builder) *stdenv.Builder {
		return b.ConfigureFlags(drv.Str("--disable-manual"))
	}).Optional(!opts.Perl.IsZero(), func(b *stdenv.Builder) *stdenv.Builder {
		return b.DepsBuildHost(opts.Perl.Out())
	})
}

func Curl(env stdenv.Stdenv, opts CurlOptions) drv.Handle {
	return CurlBuilder(env, opts).Lazy()
}
