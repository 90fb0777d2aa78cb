package runtime

import (
	"strings"
	"testing"

	"github.com/containerd/platforms"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
)

func TestImageTag(t *testing.T) {
	tests := []struct {
		path string
	}{
		{"/var/lib/cruxpkgs/sandbox.tar"},
		{"relative/sandbox image.tar"},
		{"/with:colon/and@at.tar"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			tag := imageTag(tt.path)
			want := "import/" + digest.FromString(tt.path).Encoded() + ":latest"
			if tag != want {
				t.Fatalf("imageTag(%q) = %q, want %q", tt.path, tag, want)
			}
			if imageTag(tt.path) != tag {
				t.Fatal("imageTag is not deterministic")
			}
		})
	}

	if imageTag("/a.tar") == imageTag("/b.tar") {
		t.Fatal("different paths produced the same tag")
	}
}

func TestNewSandboxID(t *testing.T) {
	a, b := newSandboxID(), newSandboxID()
	if a == b {
		t.Fatalf("sandbox IDs collide: %q", a)
	}

	for _, id := range []string{a, b} {
		rest, ok := strings.CutPrefix(id, sandboxPrefix)
		if !ok {
			t.Fatalf("id %q missing %q prefix", id, sandboxPrefix)
		}
		if _, err := uuid.Parse(rest); err != nil {
			t.Fatalf("id %q does not end in a UUID: %v", id, err)
		}
	}
}

func TestSandboxFilter(t *testing.T) {
	want := `labels."org.cruxpkgs.sandbox"==true`
	if got := sandboxFilter(); got != want {
		t.Fatalf("sandboxFilter() = %q, want %q", got, want)
	}
}

func TestDefaultPlatform(t *testing.T) {
	p := defaultPlatform()
	spec, err := platforms.Parse(p)
	if err != nil {
		t.Fatalf("defaultPlatform = %q does not parse: %v", p, err)
	}
	if !platforms.Default().Match(spec) {
		t.Fatalf("defaultPlatform = %q does not match the host", p)
	}
}
