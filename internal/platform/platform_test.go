package platform

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "gnu triple", input: "x86_64-unknown-linux-gnu", want: "x86_64-unknown-linux-gnu"},
		{name: "triple without abi", input: "aarch64-apple-darwin", want: "aarch64-apple-darwin"},
		{name: "double", input: "aarch64-linux", want: "aarch64-unknown-linux-gnu"},
		{name: "darwin double", input: "x86_64-darwin", want: "x86_64-apple-darwin"},
		{name: "oci amd64", input: "linux/amd64", want: "x86_64-unknown-linux-gnu"},
		{name: "oci arm64", input: "linux/arm64", want: "aarch64-unknown-linux-gnu"},
		{name: "oci riscv", input: "linux/riscv64", want: "riscv64-unknown-linux-gnu"},
		{name: "empty", input: "", wantErr: true},
		{name: "single word", input: "linux", wantErr: true},
		{name: "empty field", input: "x86_64--linux", wantErr: true},
		{name: "too many fields", input: "a-b-c-d-e", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPlatform) {
					t.Fatalf("err = %v, want ErrInvalidPlatform", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.String() != tt.want {
				t.Fatalf("String() = %q, want %q", p.String(), tt.want)
			}
		})
	}
}

func TestDouble(t *testing.T) {
	p := MustParse("x86_64-unknown-linux-gnu")
	if p.Double() != "x86_64-linux" {
		t.Fatalf("Double() = %q, want x86_64-linux", p.Double())
	}
}

func TestOCIRoundTrip(t *testing.T) {
	for _, s := range []string{"linux/amd64", "linux/arm64", "linux/386"} {
		p := MustParse(s)
		got, ok := p.OCIString()
		if !ok {
			t.Fatalf("%s: no OCI form", s)
		}
		if got != s {
			t.Fatalf("OCIString() = %q, want %q", got, s)
		}
	}
}

func TestOCIUnknownArch(t *testing.T) {
	p := Platform{Arch: "vax", Vendor: "dec", OS: "ultrix"}
	if _, ok := p.OCI(); ok {
		t.Fatal("expected no OCI form for vax")
	}
}

func TestHost(t *testing.T) {
	if Host().IsZero() {
		t.Fatal("host platform is zero")
	}
}
