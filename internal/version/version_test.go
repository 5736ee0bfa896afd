package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func withVersion(t *testing.T, v, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	Version, GitCommit, BuildDate = v, commit, date
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	})
}

func TestLine(t *testing.T) {
	cases := []struct {
		version, commit, date string
		want                  string
	}{
		{"1.2.3", "", "", "classgen 1.2.3"},
		{"1.2.3", "abc123", "", "classgen 1.2.3 (abc123)"},
		{"1.2.3", "abc123", "2024-01-15", "classgen 1.2.3 (abc123, 2024-01-15)"},
		{"1.2.3", "", "2024-01-15", "classgen 1.2.3 (2024-01-15)"},
	}
	for _, tc := range cases {
		withVersion(t, tc.version, tc.commit, tc.date)
		if got := Line(false); got != tc.want {
			t.Errorf("Line() = %q, want %q", got, tc.want)
		}
	}
}

func TestColoredKeepsComponents(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	withVersion(t, "0.4.2-rc1", "", "")
	got := Colored()
	if got == Version {
		t.Fatalf("expected escape sequences, got %q", got)
	}
	for _, part := range []string{"0", "4", "2", "-rc1"} {
		if !strings.Contains(got, part) {
			t.Fatalf("%q lost %q", got, part)
		}
	}

	withVersion(t, "dev", "", "")
	if got := Colored(); got != "dev" {
		t.Fatalf("non-semver version must stay plain, got %q", got)
	}
}
