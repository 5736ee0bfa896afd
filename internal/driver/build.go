package driver

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"classgen/internal/backend/llvm"
	"classgen/internal/diag"
	"classgen/internal/layout"
	"classgen/internal/observ"
	"classgen/internal/project"
	"classgen/internal/project/dag"
	"classgen/internal/schema"
	"classgen/internal/trace"
	"classgen/internal/types"
	"classgen/internal/version"
)

// Plan is the set of units to build and how to lower them.
type Plan struct {
	Name   string
	Units  []project.UnitMeta
	Config llvm.Config
	OutDir string // IR files are written here; empty keeps them in memory
}

// PlanFromManifest builds the plan of a project.
func PlanFromManifest(m *project.Manifest) (Plan, error) {
	names, err := RuntimeNames(m.Runtime)
	if err != nil {
		return Plan{}, fmt.Errorf("%s: %s [runtime]: %w", diag.CfgParse.ID(), m.Path, err)
	}
	return Plan{
		Name:   m.Name,
		Units:  m.Units,
		Config: llvm.Config{Target: m.Target, Runtime: names},
		OutDir: m.Output.Dir,
	}, nil
}

// PlanFromFiles builds a plan of independent units, one per declaration
// file.
func PlanFromFiles(paths []string, target layout.Target, outDir string) (Plan, error) {
	units, err := project.UnitsFromFiles(paths)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		Units:  units,
		Config: llvm.Config{Target: target, Runtime: llvm.DefaultRuntimeNames()},
		OutDir: outDir,
	}, nil
}

// RuntimeNames applies manifest overrides to the default runtime helpers
// and rejects a set in which two helpers share a symbol.
func RuntimeNames(rc project.RuntimeConfig) (llvm.RuntimeNames, error) {
	names := llvm.DefaultRuntimeNames()
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&names.NewClass, rc.NewClass)
	set(&names.DynamicCast, rc.DynamicCast)
	set(&names.InterfaceCast, rc.InterfaceCast)
	set(&names.ToObject, rc.ToObject)
	set(&names.MemCpy, rc.MemCpy)
	return names, names.Validate()
}

// Options tune a build.
type Options struct {
	Jobs           int // <= 0 uses GOMAXPROCS
	MaxDiagnostics int // per unit
	Cache          *DiskCache
	Sink           ProgressSink
	Timer          *observ.Timer
}

// UnitResult is the outcome of one unit.
type UnitResult struct {
	Name    string
	Path    string
	Hash    project.Digest
	Output  string // IR file, when written
	IR      string
	Classes []llvm.ClassReport
	Bag     *diag.Bag

	Cached  bool
	Skipped bool // not lowered: its own graph errors or a broken dependency
	Broken  bool
}

// Result collects the outcome of a build.
type Result struct {
	Plan    Plan
	Units   []*UnitResult // plan order
	Order   []string      // build order
	Timings observ.Report
}

// HasErrors reports whether any unit failed.
func (r *Result) HasErrors() bool {
	for _, u := range r.Units {
		if u.Broken {
			return true
		}
	}
	return false
}

// Diagnostics merges the diagnostics of every unit, sorted.
func (r *Result) Diagnostics() *diag.Bag {
	n := 0
	for _, u := range r.Units {
		n += u.Bag.Len()
	}
	out := diag.NewBag(n)
	for _, u := range r.Units {
		out.Merge(u.Bag)
	}
	out.Sort()
	return out
}

type builder struct {
	plan     Plan
	opts     Options
	timer    *observ.Timer
	cfgHash  project.Digest
	ptrSize  uint64
	maxDiags int
}

// Build lowers every unit of the plan. Units run in dependency batches;
// the units of one batch are lowered concurrently. A unit whose dependency
// failed is skipped. The error is non-nil only when ctx is cancelled or
// the runtime helper names are unusable.
func Build(ctx context.Context, plan Plan, opts Options) (*Result, error) {
	if plan.Config.Target.PtrSize == 0 {
		plan.Config.Target = layout.X86_64LinuxGNU()
	}
	if plan.Config.Runtime == (llvm.RuntimeNames{}) {
		plan.Config.Runtime = llvm.DefaultRuntimeNames()
	}
	if err := plan.Config.Runtime.Validate(); err != nil {
		return nil, err
	}
	b := &builder{
		plan:     plan,
		opts:     opts,
		timer:    opts.Timer,
		cfgHash:  configHash(plan.Config),
		ptrSize:  uint64(plan.Config.Target.PtrSize), // #nosec G115 -- validated by the manifest
		maxDiags: opts.MaxDiagnostics,
	}
	if b.timer == nil {
		b.timer = observ.NewTimer()
	}
	if b.maxDiags <= 0 {
		b.maxDiags = 100
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	res := &Result{Plan: plan, Units: make([]*UnitResult, len(plan.Units))}
	metas := make([]project.UnitMeta, len(plan.Units))
	nodes := make([]dag.UnitNode, len(plan.Units))
	_ = b.timer.Measure("hash", func() error {
		for i, u := range plan.Units {
			ur := &UnitResult{Name: u.Name, Path: u.Path, Bag: diag.NewBag(b.maxDiags)}
			res.Units[i] = ur
			rep := &diag.BagReporter{Bag: ur.Bag}
			emit(opts.Sink, Event{Unit: u.Name, Stage: StageHash, Status: StatusQueued})
			if err := u.Hash(); err != nil {
				diag.ReportError(rep, diag.IOLoadFileError, diag.At(u.Path), fmt.Sprintf("cannot read declarations: %v", err)).Emit()
				ur.Broken = true
				emit(opts.Sink, Event{Unit: u.Name, Stage: StageHash, Status: StatusError, Err: err})
			}
			metas[i] = u
			nodes[i] = dag.UnitNode{Meta: u, Reporter: rep, Broken: ur.Broken, FirstErr: firstError(ur.Bag)}
		}
		return nil
	})

	var (
		idx   dag.UnitIndex
		graph dag.Graph
		slots []dag.UnitSlot
		topo  *dag.Topo
	)
	owner := make(map[dag.UnitID]int, len(metas))
	_ = b.timer.Measure("graph", func() error {
		idx = dag.BuildIndex(metas)
		graph, slots = dag.BuildGraph(idx, nodes)
		for i, m := range metas {
			id := idx.NameToID[m.Name]
			if _, seen := owner[id]; !seen {
				owner[id] = i
			}
		}
		topo = dag.ToposortKahn(graph)
		dag.ReportCycles(idx, slots, topo)
		hashes := dag.UnitHashes(graph, slots, topo)
		for id, i := range owner {
			res.Units[i].Hash = hashes[int(id)]
		}
		return nil
	})
	for _, id := range topo.Order {
		res.Order = append(res.Order, idx.IDToName[int(id)])
	}
	for i, ur := range res.Units {
		if ur.Bag.HasErrors() && !ur.Broken {
			ur.Broken, ur.Skipped = true, true
			emit(opts.Sink, Event{Unit: ur.Name, Stage: StageHash, Status: StatusError})
		}
		if id := idx.NameToID[metas[i].Name]; owner[id] == i {
			slots[int(id)].Broken = ur.Broken
			slots[int(id)].FirstErr = firstError(ur.Bag)
		}
	}

	for _, batch := range topo.Batches {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(jobs)
		for _, id := range batch {
			ur := res.Units[owner[id]]
			if ur.Broken {
				continue
			}
			if brokenDep(graph, slots, id) {
				ur.Broken, ur.Skipped = true, true
				emit(opts.Sink, Event{Unit: ur.Name, Stage: StageLoad, Status: StatusSkipped})
				continue
			}
			g.Go(func() error {
				return b.timer.Measure("unit "+ur.Name, func() error {
					return b.unit(gctx, ur)
				})
			})
		}
		if err := g.Wait(); err != nil {
			res.Timings = b.timer.Report()
			return res, err
		}
		for _, id := range batch {
			ur := res.Units[owner[id]]
			slots[int(id)].Broken = ur.Broken
			slots[int(id)].FirstErr = firstError(ur.Bag)
		}
	}
	dag.ReportBrokenDeps(idx, slots)
	res.Timings = b.timer.Report()
	return res, nil
}

func brokenDep(g dag.Graph, slots []dag.UnitSlot, id dag.UnitID) bool {
	for _, d := range g.Deps[int(id)] {
		if slots[int(d)].Broken {
			return true
		}
	}
	return false
}

// unit builds one unit. Diagnostics go to the unit's bag; only cancellation
// is returned.
func (b *builder) unit(ctx context.Context, ur *UnitResult) error {
	start := time.Now()
	ctx, span := trace.Start(ctx, trace.ScopeUnit, "unit:"+ur.Name)
	defer func() { span.End(string(ur.Status())) }()
	sink := b.opts.Sink
	rep := diag.NewDedupReporter(&diag.BagReporter{Bag: ur.Bag})
	fail := func(stage Stage, err error) error {
		ur.Broken = true
		emit(sink, Event{Unit: ur.Name, Stage: stage, Status: StatusError, Err: err, Elapsed: time.Since(start)})
		return nil
	}
	key := project.Combine(ur.Hash, b.cfgHash)

	if b.opts.Cache != nil {
		cached, ok, err := b.opts.Cache.Get(key)
		if err != nil {
			diag.ReportWarning(rep, diag.ObsCache, diag.At(ur.Path), fmt.Sprintf("ignoring unreadable cache entry: %v", err)).Emit()
		}
		if ok {
			span.Set("cache", "hit")
			ur.Cached = true
			ur.IR = cached.IR
			ur.Classes = cached.Classes
			for _, w := range cached.Warnings {
				diag.ReportWarning(rep, diag.Code(w.Code), diag.Location{File: w.File, Symbol: w.Symbol}, w.Message).Emit()
			}
			if err := b.write(ur, rep); err != nil {
				return fail(StageEmit, err)
			}
			emit(sink, Event{Unit: ur.Name, Stage: StageEmit, Status: StatusCached, Elapsed: time.Since(start)})
			return nil
		}
	}

	emit(sink, Event{Unit: ur.Name, Stage: StageLoad, Status: StatusWorking})
	prog, err := schema.Options{PtrSize: b.ptrSize}.LoadFile(ur.Path, rep)
	if err != nil {
		return fail(StageLoad, err)
	}

	emit(sink, Event{Unit: ur.Name, Stage: StageLower, Status: StatusWorking})
	l := llvm.New(ctx, prog, b.plan.Config)
	if err := l.LowerModule(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		ReportLoweringError(rep, ur.Path, err)
		return fail(StageLower, err)
	}
	classes, err := classReports(l, prog)
	if err != nil {
		ReportLoweringError(rep, ur.Path, err)
		return fail(StageLower, err)
	}
	ur.Classes = classes

	emit(sink, Event{Unit: ur.Name, Stage: StageEmit, Status: StatusWorking})
	ur.IR = l.Module().String()
	if err := b.write(ur, rep); err != nil {
		return fail(StageEmit, err)
	}
	if b.opts.Cache != nil {
		entry := &CachedUnit{
			Name:     ur.Name,
			UnitHash: key,
			Triple:   b.plan.Config.Target.Triple,
			IR:       ur.IR,
			Classes:  ur.Classes,
			Warnings: warnings(ur.Bag),
		}
		if err := b.opts.Cache.Put(key, entry); err != nil {
			diag.ReportWarning(rep, diag.ObsCache, diag.At(ur.Path), fmt.Sprintf("cannot store cache entry: %v", err)).Emit()
		}
	}
	emit(sink, Event{Unit: ur.Name, Stage: StageEmit, Status: StatusDone, Elapsed: time.Since(start)})
	return nil
}

func classReports(l *llvm.Lowerer, prog *types.Program) ([]llvm.ClassReport, error) {
	out := make([]llvm.ClassReport, 0, len(prog.Classes))
	for _, id := range prog.Classes {
		r, err := l.Report(id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (b *builder) write(ur *UnitResult, rep diag.Reporter) error {
	if b.plan.OutDir == "" {
		return nil
	}
	path := filepath.Join(b.plan.OutDir, ur.Name+".ll")
	err := os.MkdirAll(b.plan.OutDir, 0o755)
	if err == nil {
		err = os.WriteFile(path, []byte(ur.IR), 0o600)
	}
	if err != nil {
		diag.ReportError(rep, diag.IOWriteFileError, diag.At(path), fmt.Sprintf("cannot write IR: %v", err)).Emit()
		return err
	}
	ur.Output = path
	return nil
}

// configHash folds everything besides the declarations that changes the
// emitted IR.
func configHash(cfg llvm.Config) project.Digest {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%d\x00%+v", version.Version,
		cfg.Target.Triple, cfg.Target.PtrSize, cfg.Target.PtrAlign, cfg.Runtime)
	var out project.Digest
	copy(out[:], h.Sum(nil))
	return out
}

func firstError(bag *diag.Bag) *diag.Diagnostic {
	for _, d := range bag.Items() {
		if d.Severity == diag.SevError {
			return &d
		}
	}
	return nil
}

func warnings(bag *diag.Bag) []CachedDiagnostic {
	var out []CachedDiagnostic
	for _, d := range bag.Items() {
		if d.Severity != diag.SevWarning || d.Code == diag.ObsCache {
			continue
		}
		out = append(out, CachedDiagnostic{Code: uint16(d.Code), Message: d.Message, File: d.Primary.File, Symbol: d.Primary.Symbol})
	}
	return out
}

// ErrBuildFailed is returned by callers that turn a failed Result into an
// error.
var ErrBuildFailed = errors.New("build failed")
