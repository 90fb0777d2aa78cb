package pkgs

import (
	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/stdenv"
)

const helloVersion = "2.12.1"

// GNU hello, the smallest package exercising the whole phase sequence.
func HelloBuilder(env stdenv.Stdenv) *stdenv.Builder {
	src := FetchURL(
		"https://ftp.gnu.org/gnu/hello/hello-"+helloVersion+".tar.gz",
		"sha512:f7241feadfb978e93ff7d34127af78b06b736b8c35fc2d0516b070c1bb1148d7b5108cb36737abfb2d463936e7ce9a78aab23058aca2a29d4266247bcfbfbe68",
	)

	return env.MakeDerivation().
		Name("hello").
		Version(helloVersion).
		Src(src.Out()).
		DoCheck()
}

func Hello(env stdenv.Stdenv) drv.Handle {
	return HelloBuilder(env).Lazy()
}
