package runtime

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMergeEnv(t *testing.T) {
	tests := []struct {
		name      string
		base      []string
		overrides []string
		want      []string
	}{
		{
			name:      "override existing key in place",
			base:      []string{"A=1", "B=2"},
			overrides: []string{"A=override"},
			want:      []string{"A=override", "B=2"},
		},
		{
			name:      "add new key at the end",
			base:      []string{"B=1"},
			overrides: []string{"A=2"},
			want:      []string{"B=1", "A=2"},
		},
		{
			name:      "empty base",
			overrides: []string{"A=1"},
			want:      []string{"A=1"},
		},
		{
			name: "empty overrides",
			base: []string{"A=1"},
			want: []string{"A=1"},
		},
		{
			name: "both empty",
			want: []string{},
		},
		{
			name: "value with equals sign",
			base: []string{"CMD=foo=bar"},
			want: []string{"CMD=foo=bar"},
		},
		{
			name:      "malformed entries skipped",
			base:      []string{"NOEQUALS", "A=1"},
			overrides: []string{"ALSO_BAD", "B=2"},
			want:      []string{"A=1", "B=2"},
		},
		{
			name:      "later override wins",
			overrides: []string{"A=1", "A=2"},
			want:      []string{"A=2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeEnv(tt.base, tt.overrides)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("mergeEnv mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeEnvDoesNotAliasBase(t *testing.T) {
	base := make([]string, 1, 4)
	base[0] = "A=1"
	mergeEnv(base, []string{"B=2"})
	if got := base[:2][1]; got != "" {
		t.Fatalf("base backing array modified: %q", got)
	}
}

func TestNextExecID(t *testing.T) {
	a := nextExecID()
	b := nextExecID()
	if a == b {
		t.Fatalf("nextExecID returned duplicate: %q", a)
	}
	if a == "" || b == "" {
		t.Fatal("nextExecID returned empty string")
	}
}
