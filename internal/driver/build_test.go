package driver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"classgen/internal/backend/llvm"
	"classgen/internal/diag"
	"classgen/internal/layout"
	"classgen/internal/observ"
	"classgen/internal/project"
)

const libDecls = `module = "lib"
[[class]]
name = "Lib"
[[class.field]]
name = "n"
type = "long"
`

const appDecls = `module = "app"
[[class]]
name = "Lib"
module = "lib"
extern = true
[[class.field]]
name = "n"
type = "long"
[[class]]
name = "Use"
base = "lib.Lib"
[[class.field]]
name = "p"
type = "void*"
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

// project writes lib and app units where app depends on lib.
func twoUnitPlan(t *testing.T, lib string) (Plan, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "decls", "lib.toml"), lib)
	writeFile(t, filepath.Join(dir, "decls", "app.toml"), appDecls)
	return Plan{
		Name: "demo",
		Units: []project.UnitMeta{
			{Name: "app", Path: filepath.Join(dir, "decls", "app.toml"), Depends: []string{"lib"}, Loc: diag.At("classgen.toml", "unit", "app")},
			{Name: "lib", Path: filepath.Join(dir, "decls", "lib.toml"), Loc: diag.At("classgen.toml", "unit", "lib")},
		},
		Config: llvm.DefaultConfig(),
		OutDir: filepath.Join(dir, "build"),
	}, dir
}

func unit(t *testing.T, res *Result, name string) *UnitResult {
	t.Helper()
	for _, u := range res.Units {
		if u.Name == name {
			return u
		}
	}
	t.Fatalf("unit %s missing", name)
	return nil
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

type recordingSink struct {
	mu   sync.Mutex
	last map[string]Status
}

func (s *recordingSink) OnEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		s.last = make(map[string]Status)
	}
	s.last[ev.Unit] = ev.Status
}

func TestBuildProjectInDependencyOrder(t *testing.T) {
	plan, _ := twoUnitPlan(t, libDecls)
	sink := &recordingSink{}
	res, err := Build(context.Background(), plan, Options{Jobs: 2, Sink: sink})
	if err != nil {
		t.Fatal(err)
	}
	if res.HasErrors() {
		t.Fatalf("unexpected errors: %v", res.Diagnostics().Items())
	}
	if strings.Join(res.Order, ",") != "lib,app" {
		t.Fatalf("order %v", res.Order)
	}
	app := unit(t, res, "app")
	if app.Output != filepath.Join(plan.OutDir, "app.ll") {
		t.Fatalf("output %q", app.Output)
	}
	data, err := os.ReadFile(app.Output)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != app.IR || !strings.Contains(app.IR, "%C3app3Use = type {") {
		t.Fatalf("unexpected IR:\n%s", data)
	}
	if len(app.Classes) != 1 || app.Classes[0].Name != "app.Use" {
		t.Fatalf("external classes must not be reported: %+v", app.Classes)
	}
	for _, name := range []string{"app", "lib"} {
		if sink.last[name] != StatusDone {
			t.Fatalf("%s ended as %q", name, sink.last[name])
		}
	}
}

func TestBuildUsesCache(t *testing.T) {
	plan, _ := twoUnitPlan(t, libDecls)
	cache, err := OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	first, err := Build(context.Background(), plan, Options{Cache: cache})
	if err != nil || first.HasErrors() {
		t.Fatalf("first build: %v", err)
	}
	second, err := Build(context.Background(), plan, Options{Cache: cache})
	if err != nil || second.HasErrors() {
		t.Fatalf("second build: %v", err)
	}
	for _, name := range []string{"app", "lib"} {
		u := unit(t, second, name)
		if !u.Cached || u.Status() != StatusCached {
			t.Fatalf("%s not served from cache", name)
		}
		if u.IR != unit(t, first, name).IR {
			t.Fatalf("%s: cached IR differs", name)
		}
	}

	plan.Config.Target = layout.TargetFor("i686-linux-gnu", 4)
	third, err := Build(context.Background(), plan, Options{Cache: cache})
	if err != nil || third.HasErrors() {
		t.Fatalf("third build: %v", err)
	}
	if unit(t, third, "lib").Cached {
		t.Fatalf("a target change must miss the cache")
	}
}

func TestDependencyChangeRebuildsDependents(t *testing.T) {
	plan, dir := twoUnitPlan(t, libDecls)
	cache, err := OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Build(context.Background(), plan, Options{Cache: cache}); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "decls", "lib.toml"), libDecls+"[[class.field]]\nname = \"m\"\ntype = \"int\"\n")
	res, err := Build(context.Background(), plan, Options{Cache: cache})
	if err != nil || res.HasErrors() {
		t.Fatalf("rebuild: %v", err)
	}
	if unit(t, res, "lib").Cached || unit(t, res, "app").Cached {
		t.Fatalf("a dependency change must rebuild its dependents")
	}
}

func TestBrokenDependencySkipsDependents(t *testing.T) {
	plan, _ := twoUnitPlan(t, "module = \"lib\"\n[[class]]\nname = \"Lib\"\nbase = \"Nope\"\n")
	sink := &recordingSink{}
	res, err := Build(context.Background(), plan, Options{Sink: sink})
	if err != nil {
		t.Fatal(err)
	}
	lib, app := unit(t, res, "lib"), unit(t, res, "app")
	if !lib.Broken || lib.Skipped || !lib.Bag.HasErrors() {
		t.Fatalf("lib must fail while loading: %+v", lib)
	}
	if !app.Skipped || app.Status() != StatusSkipped || sink.last["app"] != StatusSkipped {
		t.Fatalf("app must be skipped: %+v", app)
	}
	items := app.Bag.Items()
	if len(items) != 1 || items[0].Code != diag.CfgDependencyFailed || len(items[0].Notes) != 1 {
		t.Fatalf("app diagnostics %v", items)
	}
	if items[0].Notes[0].Location.File != lib.Path {
		t.Fatalf("note must point into the dependency: %v", items[0].Notes)
	}
}

func TestBuildReportsUnitCycles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.toml"), "module = \"a\"\n")
	writeFile(t, filepath.Join(dir, "b.toml"), "module = \"b\"\n")
	plan := Plan{Units: []project.UnitMeta{
		{Name: "a", Path: filepath.Join(dir, "a.toml"), Depends: []string{"b"}},
		{Name: "b", Path: filepath.Join(dir, "b.toml"), Depends: []string{"a"}},
	}}
	res, err := Build(context.Background(), plan, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range res.Units {
		if !u.Broken || !hasCode(u.Bag, diag.CfgUnitCycle) {
			t.Fatalf("%s: %v", u.Name, u.Bag.Items())
		}
	}
	if len(res.Order) != 0 {
		t.Fatalf("cyclic units have no build order: %v", res.Order)
	}
}

func TestBuildMissingDeclarationFile(t *testing.T) {
	plan, err := PlanFromFiles([]string{filepath.Join(t.TempDir(), "gone.toml")}, layout.X86_64LinuxGNU(), "")
	if err != nil {
		t.Fatal(err)
	}
	res, err := Build(context.Background(), plan, Options{})
	if err != nil {
		t.Fatal(err)
	}
	u := unit(t, res, "gone")
	if !u.Broken || !hasCode(u.Bag, diag.IOLoadFileError) {
		t.Fatalf("%+v %v", u, u.Bag.Items())
	}
}

func TestBuildHonorsCancellation(t *testing.T) {
	plan, _ := twoUnitPlan(t, libDecls)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, plan, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRuntimeNamesOverrides(t *testing.T) {
	names, err := RuntimeNames(project.RuntimeConfig{NewClass: "rt_new"})
	if err != nil {
		t.Fatal(err)
	}
	def := llvm.DefaultRuntimeNames()
	if names.NewClass != "rt_new" || names.DynamicCast != def.DynamicCast || names.MemCpy != def.MemCpy {
		t.Fatalf("names %+v", names)
	}
}

func TestRuntimeNamesRejectsSharedSymbol(t *testing.T) {
	def := llvm.DefaultRuntimeNames()
	if _, err := RuntimeNames(project.RuntimeConfig{ToObject: def.DynamicCast}); err == nil {
		t.Fatalf("two helpers sharing %s accepted", def.DynamicCast)
	}
	if _, err := PlanFromManifest(&project.Manifest{Path: "classgen.toml", Runtime: project.RuntimeConfig{NewClass: "rt", ToObject: "rt"}}); err == nil {
		t.Fatalf("manifest with a shared helper name accepted")
	}

	plan, _ := twoUnitPlan(t, libDecls)
	plan.Config.Runtime.MemCpy = "  "
	if _, err := Build(context.Background(), plan, Options{}); err == nil {
		t.Fatalf("empty helper name accepted")
	}
}

func TestReportLoweringError(t *testing.T) {
	cases := []struct {
		err  error
		code diag.Code
		sym  string
	}{
		{&llvm.InvariantError{Kind: llvm.ErrOffsetMismatch, Class: "app.A", Detail: "x"}, diag.LowOffsetMismatch, "app.A"},
		{&llvm.InvariantError{Kind: llvm.ErrInvalidCast, Detail: "y"}, diag.LowInvalidCast, ""},
		{&llvm.InvariantError{Kind: llvm.ErrMissingMethod, Class: "app.B", Detail: "z"}, diag.LowInvariant, "app.B"},
		{errors.New("boom"), diag.LowInvariant, ""},
	}
	for _, tc := range cases {
		bag := diag.NewBag(1)
		ReportLoweringError(&diag.BagReporter{Bag: bag}, "a.toml", tc.err)
		d := bag.Items()[0]
		if d.Code != tc.code || d.Primary != diag.At("a.toml", tc.sym) || d.Severity != diag.SevError {
			t.Errorf("%v: got %+v", tc.err, d)
		}
	}
}

func TestWriteReport(t *testing.T) {
	plan, _ := twoUnitPlan(t, libDecls)
	plan.OutDir = ""
	res, err := Build(context.Background(), plan, Options{})
	if err != nil {
		t.Fatal(err)
	}
	r := NewReport(res)

	var js bytes.Buffer
	if err := WriteReport(&js, project.ReportJSON, r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(js.String(), `"name": "app.Use"`) || !strings.Contains(js.String(), `"status": "done"`) {
		t.Fatalf("json report:\n%s", js.String())
	}

	var mp bytes.Buffer
	if err := WriteReport(&mp, project.ReportMsgpack, r); err != nil {
		t.Fatal(err)
	}
	back, err := ReadReport(&mp)
	if err != nil {
		t.Fatal(err)
	}
	if back.Project != "demo" || len(back.Units) != 2 || back.Units[0].Classes[0].Name != "app.Use" {
		t.Fatalf("msgpack report %+v", back)
	}

	if err := WriteReport(&js, "xml", r); err == nil {
		t.Fatalf("unknown formats must fail")
	}
}

func TestTimingDiagnostic(t *testing.T) {
	d := TimingDiagnostic("", observ.Report{TotalMS: 1.5, Phases: []observ.PhaseReport{{Name: "graph"}}})
	if d.Code != diag.ObsTimings || d.Severity != diag.SevInfo || d.Message != "timings (build): total 1.50 ms" {
		t.Fatalf("diagnostic %+v", d)
	}
	if len(d.Notes) != 1 || !strings.Contains(d.Notes[0].Msg, `"total_ms":1.5`) {
		t.Fatalf("notes %+v", d.Notes)
	}
}
