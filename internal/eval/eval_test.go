package eval

import (
	"errors"
	"slices"
	"testing"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/platform"
)

var linux = platform.MustParse("x86_64-linux")

func TestPackage(t *testing.T) {
	h, err := Package(Request{Attr: "hello", Platform: linux})
	if err != nil {
		t.Fatalf("Package: %v", err)
	}
	if got := h.Name(); got != "hello-2.12.1" {
		t.Fatalf("Name = %q, want %q", got, "hello-2.12.1")
	}
}

func TestPackageStdenv(t *testing.T) {
	h, err := Package(Request{Attr: "stdenv", Platform: linux, Full: true})
	if err != nil {
		t.Fatalf("Package: %v", err)
	}
	if got := h.Name(); got != "stdenv-stage2" {
		t.Fatalf("Name = %q, want %q", got, "stdenv-stage2")
	}
}

func TestPackageUnknown(t *testing.T) {
	_, err := Package(Request{Attr: "emacs", Platform: linux})
	if !errors.Is(err, ErrUnknownAttr) {
		t.Fatalf("err = %v, want ErrUnknownAttr", err)
	}
}

func TestPackageUnsupportedPlatform(t *testing.T) {
	_, err := Package(Request{Attr: "hello", Platform: platform.MustParse("powerpc64-linux")})
	if !errors.Is(err, drv.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestAttrs(t *testing.T) {
	attrs := Attrs()
	for _, want := range []string{"hello", "zlib", "perl", "curl", "stdenv"} {
		if !slices.Contains(attrs, want) {
			t.Errorf("Attrs() = %v, missing %q", attrs, want)
		}
	}
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform("")
	if err != nil || !p.IsZero() {
		t.Fatalf("ParsePlatform(\"\") = %v, %v; want zero", p, err)
	}
	p, err = ParsePlatform("aarch64-linux")
	if err != nil {
		t.Fatalf("ParsePlatform: %v", err)
	}
	if p.Arch != "aarch64" {
		t.Fatalf("Arch = %q, want aarch64", p.Arch)
	}
}
