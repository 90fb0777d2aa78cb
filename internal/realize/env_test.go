package realize

import (
	"testing"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/google/go-cmp/cmp"
)

func TestNewStepEnv(t *testing.T) {
	got := newStepEnv("/build").environ()
	want := []string{
		"HOME=/homeless-shelter",
		"TMPDIR=/build",
		"TMP=/build",
		"TEMP=/build",
		"BUILD_TOP=/build",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("environ mismatch (-want +got):\n%s", diff)
	}
}

func TestStepEnvApply(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		want    []string
	}{
		{
			name:    "override keeps position",
			entries: []string{"A=1", "B=2", "A=3"},
			want:    []string{"A=3", "B=2"},
		},
		{
			name:    "value with equals sign",
			entries: []string{"FLAGS=-Dx=1"},
			want:    []string{"FLAGS=-Dx=1"},
		},
		{
			name:    "malformed entries ignored",
			entries: []string{"BAD", "A=1"},
			want:    []string{"A=1"},
		},
		{
			name:    "empty value kept",
			entries: []string{"EMPTY="},
			want:    []string{"EMPTY="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &stepEnv{vars: make(map[string]string)}
			e.apply(tt.entries)
			if diff := cmp.Diff(tt.want, e.environ()); diff != "" {
				t.Fatalf("environ mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStepEnviron(t *testing.T) {
	r := &drv.Rendered{
		Name:    "hello",
		Outputs: []drv.RenderedOutput{{Name: "out", Path: "/store/abc-hello"}},
		Env: []drv.RenderedVar{
			{Name: "NAME", Value: "hello"},
			{Name: "TMPDIR", Value: "/custom"},
		},
	}

	got := stepEnviron(r, "/build")
	want := []string{
		"HOME=/homeless-shelter",
		"TMPDIR=/custom",
		"TMP=/build",
		"TEMP=/build",
		"BUILD_TOP=/build",
		"out=/store/abc-hello",
		"outputs=out",
		"NAME=hello",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("stepEnviron mismatch (-want +got):\n%s", diff)
	}
}

func TestTail(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"a\nb\nc\n", 2, "b\nc"},
		{"a\nb", 5, "a\nb"},
		{"", 3, ""},
	}
	for _, tt := range tests {
		if got := tail(tt.in, tt.n); got != tt.want {
			t.Errorf("tail(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
