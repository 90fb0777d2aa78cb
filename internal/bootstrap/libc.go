package bootstrap

import (
	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/stdenv"
)

// Links the C library shipped in the bootstrap tools into place. The glibc
// headers live apart from the other headers of the bundle. The dev and lib
// outputs stay empty until a stage builds a real C library.
const libcScript = `mkdir -p "$out" "$dev" "$lib"
ln -s "$bootstrap_tools/lib" "$out/lib"
ln -s "$bootstrap_tools/include-glibc" "$out/include"
`

// Returns a step exposing the bootstrap tools' C library.
//
// Nothing is compiled: the step only wires directories of the tools bundle
// into an output with the out/dev/lib layout later stages expect.
func libc(env stdenv.Stdenv, tools drv.Handle) drv.Handle {
	return env.MakeDerivation().
		Name("bootstrap-stage0-glibc").
		Version("bootstrap-files").
		Out("out").Out("dev").Out("lib").
		Input("bootstrap_tools", tools.Out()).
		BuildCommand(drv.Str(libcScript)).
		Lazy()
}
