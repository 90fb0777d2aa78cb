package pkgs

import (
	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/stdenv"
)

const perlVersion = "5.40.0"

// Perl's Configure takes -D options instead of autoconf flags. The C
// library search paths are only passed when the environment has one.
const perlConfigure = `sh ./Configure -de -Dprefix="$out" -Dman1dir="$out/share/man/man1" -Dman3dir="$out/share/man/man3" ${libcInc:+-Dlocincpth="$libcInc/include"} ${libcLib:+-Dloclibpth="$libcLib/lib"} $CONFIGURE_FLAGS`

const perlPostPatch = `substituteInPlace dist/PathTools/Cwd.pm --replace "/bin/pwd" "$(command -v pwd)"`

// Pins the host details Configure would otherwise record.
const perlConfigOver = `cat > config.over <<EOF
osvers="gnulinux"
myuname="cruxpkgs"
myhostname="cruxpkgs"
cf_by="cruxpkgs"
cf_time="$(date -d "@${SOURCE_DATE_EPOCH:-1}")"
EOF
`

// Points Compress::Raw::Zlib at the zlib package instead of its bundled copy.
const perlZlibConfig = `cat > ./cpan/Compress-Raw-Zlib/config.in <<EOF
BUILD_ZLIB   = False
INCLUDE      = $zlibDev/include
LIB          = $zlibOut/lib
OLD_ZLIB     = False
GZIP_OS_CODE = AUTO_DETECT
USE_ZLIB_NG  = False
ZLIB_INCLUDE = $zlibDev/include
ZLIB_LIB     = $zlibOut/lib
EOF
`

// Drops references from the installed configuration to the build-time C
// library and to the man output.
const perlPostInstall = `rm -f "$out"/lib/perl5/*/*/.packlist
sed "/ *libpth =>/c    libpth => ' '," -i "$out"/lib/perl5/*/*/Config.pm
for f in "$out"/lib/perl5/*/*/Config_heavy.pl; do
    if [ -n "${libcInc:-}" ]; then
        substituteInPlace "$f" --replace "$libcInc" /no-such-path
    fi
    substituteInPlace "$f" --replace "$man" /no-such-path
done`

type PerlOptions struct {
	Threading bool       // Build with ithreads.
	Zlib      drv.Handle // System zlib for Compress::Raw::Zlib, zero for the bundled copy.
}

// The perl interpreter, with manuals and developer docs in their own
// outputs.
func PerlBuilder(env stdenv.Stdenv, opts PerlOptions) *stdenv.Builder {
	src := FetchURL(
		"https://www.cpan.org/src/5.0/perl-"+perlVersion+".tar.gz",
		"sha512:7eae9ad0fca68ec844fb600fcad7dabeba4276957ccb4a17a26162f0871bf9e460ab210d82c69ffc270b624610c71aa764efe9bebe696734901b4d7a30a75312",
	)

	preConfigure := perlConfigOver
	if !opts.Zlib.IsZero() {
		preConfigure += perlZlibConfig
	}

	return env.MakeDerivation().
		Name("perl").
		Version(perlVersion).
		Src(src.Out()).
		InputBool("STRICT_DEPS", true).
		Out("out").
		Out("man").
		Out("devdoc").
		PostPatch(perlPostPatch).
		InputIf("libcInc", libcOutput(env.Libc, "dev")).
		InputIf("libcLib", libcOutput(env.Libc, "lib")).
		InputIf("cc", env.CC).
		Optional(!opts.Zlib.IsZero(), func(b *stdenv.Builder) *stdenv.Builder {
			return b.
				DepsHostTarget(opts.Zlib.Out()).
				Input("zlibDev", opts.Zlib.Output("dev")).
				Input("zlibOut", opts.Zlib.Out())
		}).
		ConfigurePhase(perlConfigure).
		ConfigureFlags(drv.Strs(
			"-Dcc=cc",
			"-Duseshrplib",
			"-Uinstallusrbinperl",
			"-Dinstallstyle=lib/perl5",
		)...).
		Optional(opts.Threading, func(b *stdenv.Builder) *stdenv.Builder {
			return b.ConfigureFlags(drv.Str("-Dusethreads"))
		}).
		PreConfigure(preConfigure).
		PostInstall(perlPostInstall)
}

func Perl(env stdenv.Stdenv, opts PerlOptions) drv.Handle {
	return PerlBuilder(env, opts).Lazy()
}

// Returns a reference to a named output of the C library. Libraries given
// as plain paths have no outputs and are returned unchanged; nil stays nil.
func libcOutput(libc drv.Value, output string) drv.Value {
	ref, ok := libc.(drv.Ref)
	if !ok {
		return libc
	}
	return ref.Handle.Output(output)
}
