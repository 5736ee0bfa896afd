package main

import (
	"os"
	"path/filepath"
	"testing"

	"classgen/internal/diagfmt"
)

func TestReadSwitch(t *testing.T) {
	for in, want := range map[string]switchMode{"": modeAuto, "AUTO": modeAuto, "on": modeOn, " off ": modeOff} {
		got, err := readSwitch("ui", in)
		if err != nil || got != want {
			t.Errorf("%q: got %q, %v", in, got, err)
		}
	}
	if _, err := readSwitch("ui", "sometimes"); err == nil {
		t.Fatalf("invalid value accepted")
	}
	if !modeOn.enabled(nil) || modeOff.enabled(nil) {
		t.Fatalf("explicit modes must not consult the terminal")
	}
}

func TestLoadPlanFromManifestWithOverrides(t *testing.T) {
	dir := t.TempDir()
	manifest := `[project]
name = "demo"

[target]
ptr_size = 8

[output]
report = "json"
cache = ".cache"

[[unit]]
name = "app"
path = "app.toml"
`
	if err := os.WriteFile(filepath.Join(dir, "classgen.toml"), []byte(manifest), 0o600); err != nil {
		t.Fatal(err)
	}
	bf := buildFlags{ptrSize: 4, out: filepath.Join(dir, "ir"), maxDiags: 10}
	plan, cacheDir, err := loadPlan(nil, dir, &bf, diagfmt.PrettyOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if plan.Name != "demo" || len(plan.Units) != 1 || plan.Units[0].Path != filepath.Join(dir, "app.toml") {
		t.Fatalf("plan %+v", plan)
	}
	if plan.Config.Target.PtrSize != 4 || plan.OutDir != bf.out {
		t.Fatalf("flags must override the manifest: %+v", plan.Config.Target)
	}
	if bf.report != "json" || cacheDir != filepath.Join(dir, ".cache") {
		t.Fatalf("report %q cache %q", bf.report, cacheDir)
	}
}

func TestLoadPlanWithoutManifest(t *testing.T) {
	bf := buildFlags{maxDiags: 10}
	if _, _, err := loadPlan(nil, t.TempDir(), &bf, diagfmt.PrettyOpts{}); err == nil {
		t.Fatalf("missing manifest must fail")
	}
}
