package paths

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestPathsAreNamespaced(t *testing.T) {
	tests := []struct {
		name string
		got  string
		base string
	}{
		{"socket", Socket(), "cruxpkgs.sock"},
		{"pid file", PIDFile(), "cruxpkgs.pid"},
		{"config", Config(), "config.hcl"},
		{"store", Store(), "store"},
		{"database", Database(), "cruxpkgs.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !filepath.IsAbs(tt.got) {
				t.Fatalf("%s = %q, want absolute path", tt.name, tt.got)
			}
			if filepath.Base(tt.got) != tt.base {
				t.Fatalf("%s = %q, want base %q", tt.name, tt.got, tt.base)
			}
			if !strings.Contains(tt.got, "cruxpkgs") {
				t.Fatalf("%s = %q, not under a cruxpkgs directory", tt.name, tt.got)
			}
		})
	}
}

func TestRuntimeHoldsSocket(t *testing.T) {
	if filepath.Dir(Socket()) != Runtime() {
		t.Fatalf("socket %q not in runtime dir %q", Socket(), Runtime())
	}
	if filepath.Dir(PIDFile()) != Runtime() {
		t.Fatalf("pid file %q not in runtime dir %q", PIDFile(), Runtime())
	}
}
