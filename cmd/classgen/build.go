package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"classgen/internal/diag"
	"classgen/internal/diagfmt"
	"classgen/internal/driver"
	"classgen/internal/layout"
	"classgen/internal/observ"
	"classgen/internal/project"
	"classgen/internal/ui"
)

var buildCmd = &cobra.Command{
	Use:   "build [files...]",
	Short: "Lower declaration files, or the enclosing project, to LLVM IR",
	Long: `Without arguments build lowers every unit of the classgen.toml found in
the current directory or above. With arguments every file is its own unit.`,
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringP("out", "o", "", "output directory for .ll files")
	f.IntP("jobs", "j", 0, "units lowered in parallel (0 = GOMAXPROCS)")
	f.String("triple", "", "target triple")
	f.Int("ptr-size", 0, "target pointer size in bytes (4 or 8)")
	f.String("report", "", "write a build report (json|msgpack)")
	f.String("report-file", "", "report destination (default stdout)")
	f.Bool("no-cache", false, "disable the unit cache")
	f.String("cache-dir", "", "unit cache directory")
	f.Bool("clean-cache", false, "drop the unit cache before building")
	f.String("ui", "auto", "progress UI (auto|on|off)")
	f.String("diagnostics-format", "pretty", "diagnostics output on stderr (pretty|json)")
}

type buildFlags struct {
	out        string
	jobs       int
	triple     string
	ptrSize    int
	report     string
	reportFile string
	noCache    bool
	cacheDir   string
	cleanCache bool
	ui         switchMode
	quiet      bool
	timings    bool
	maxDiags   int
	diagFormat string
}

func readBuildFlags(cmd *cobra.Command) (buildFlags, error) {
	var bf buildFlags
	var errs []error
	get := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	f := cmd.Flags()
	var err error
	bf.out, err = f.GetString("out")
	get(err)
	bf.jobs, err = f.GetInt("jobs")
	get(err)
	bf.triple, err = f.GetString("triple")
	get(err)
	bf.ptrSize, err = f.GetInt("ptr-size")
	get(err)
	bf.report, err = f.GetString("report")
	get(err)
	bf.reportFile, err = f.GetString("report-file")
	get(err)
	bf.noCache, err = f.GetBool("no-cache")
	get(err)
	bf.cacheDir, err = f.GetString("cache-dir")
	get(err)
	bf.cleanCache, err = f.GetBool("clean-cache")
	get(err)
	rawUI, err := f.GetString("ui")
	get(err)
	bf.diagFormat, err = f.GetString("diagnostics-format")
	get(err)
	bf.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet")
	get(err)
	bf.timings, err = cmd.Root().PersistentFlags().GetBool("timings")
	get(err)
	bf.maxDiags, err = cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	get(err)
	if len(errs) > 0 {
		return bf, errors.Join(errs...)
	}
	if bf.ui, err = readSwitch("ui", rawUI); err != nil {
		return bf, err
	}
	if bf.ptrSize != 0 && bf.ptrSize != 4 && bf.ptrSize != 8 {
		return bf, fmt.Errorf("unsupported --ptr-size %d (use 4 or 8)", bf.ptrSize)
	}
	switch bf.report {
	case project.ReportNone, project.ReportJSON, project.ReportMsgpack:
	default:
		return bf, fmt.Errorf("unsupported --report %q (json|msgpack)", bf.report)
	}
	if bf.diagFormat != "pretty" && bf.diagFormat != "json" {
		return bf, fmt.Errorf("unsupported --diagnostics-format %q (pretty|json)", bf.diagFormat)
	}
	return bf, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	bf, err := readBuildFlags(cmd)
	if err != nil {
		return err
	}
	colored, err := colorEnabled(cmd, os.Stderr)
	if err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	pretty := diagfmt.PrettyOpts{Color: colored, PathMode: diagfmt.PathModeRelative, BaseDir: cwd, ShowNotes: true}

	plan, cacheDir, err := loadPlan(args, cwd, &bf, pretty)
	if err != nil {
		return err
	}
	if len(plan.Units) == 0 {
		return fmt.Errorf("nothing to build: no units")
	}

	timer := observ.NewTimer()
	opts := driver.Options{Jobs: bf.jobs, MaxDiagnostics: bf.maxDiags, Timer: timer}
	if !bf.noCache {
		cache, err := driver.OpenDiskCache(cacheDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: unit cache disabled: %v\n", err)
		} else {
			if bf.cleanCache {
				if err := cache.DropAll(); err != nil {
					return fmt.Errorf("clean cache: %w", err)
				}
			}
			opts.Cache = cache
		}
	}

	var res *driver.Result
	if !bf.quiet && bf.ui.enabled(os.Stdout) {
		res, err = buildWithUI(cmd.Context(), title(plan), plan, opts)
	} else {
		res, err = driver.Build(cmd.Context(), plan, opts)
	}
	if err != nil {
		return err
	}

	if err := printDiagnostics(os.Stderr, res, bf, pretty); err != nil {
		return err
	}
	if !bf.quiet && (bf.report == "" || bf.reportFile != "") {
		printSummary(cmd.OutOrStdout(), res)
	}
	if bf.timings && bf.diagFormat == "pretty" {
		fmt.Fprint(os.Stderr, timer.Summary())
	}
	if bf.report != "" {
		if err := writeReport(cmd.OutOrStdout(), bf, res); err != nil {
			return err
		}
	}
	if res.HasErrors() {
		return driver.ErrBuildFailed
	}
	return nil
}

// loadPlan builds the plan from the files given, or from the enclosing
// project manifest. Flags override manifest settings.
func loadPlan(args []string, cwd string, bf *buildFlags, pretty diagfmt.PrettyOpts) (driver.Plan, string, error) {
	if len(args) > 0 {
		plan, err := driver.PlanFromFiles(args, layout.TargetFor(bf.triple, bf.ptrSize), bf.out)
		return plan, bf.cacheDir, err
	}
	path, ok, err := project.FindManifest(cwd)
	if err != nil {
		return driver.Plan{}, "", err
	}
	if !ok {
		return driver.Plan{}, "", fmt.Errorf("%s: %s not found in %s or any parent", diag.CfgManifestNotFound.ID(), project.ManifestName, cwd)
	}
	bag := diag.NewBag(bf.maxDiags)
	m, err := project.LoadManifest(path, &diag.BagReporter{Bag: bag})
	bag.Sort()
	diagfmt.Pretty(os.Stderr, bag, pretty)
	if err != nil {
		return driver.Plan{}, "", err
	}
	plan, err := driver.PlanFromManifest(m)
	if err != nil {
		return driver.Plan{}, "", err
	}
	if bf.triple != "" || bf.ptrSize != 0 {
		triple, ptr := m.Target.Triple, m.Target.PtrSize
		if bf.triple != "" {
			triple = bf.triple
		}
		if bf.ptrSize != 0 {
			ptr = bf.ptrSize
		}
		plan.Config.Target = layout.TargetFor(triple, ptr)
	}
	if bf.out != "" {
		plan.OutDir = bf.out
	}
	if bf.report == "" {
		bf.report = m.Output.Report
	}
	cacheDir := m.Output.Cache
	if bf.cacheDir != "" {
		cacheDir = bf.cacheDir
	}
	return plan, cacheDir, nil
}

// printDiagnostics writes the merged diagnostics of all units. JSON output
// carries the timing report as an info diagnostic.
func printDiagnostics(w io.Writer, res *driver.Result, bf buildFlags, pretty diagfmt.PrettyOpts) error {
	bag := res.Diagnostics()
	if bf.diagFormat == "pretty" {
		diagfmt.Pretty(w, bag, pretty)
		return nil
	}
	if bf.timings {
		all := diag.NewBag(bag.Len() + 1)
		all.Merge(bag)
		all.Add(driver.TimingDiagnostic("build", res.Timings))
		bag = all
	}
	return diagfmt.JSON(w, bag, diagfmt.JSONOpts{PathMode: pretty.PathMode, BaseDir: pretty.BaseDir, Max: bf.maxDiags, IncludeNotes: true})
}

func title(plan driver.Plan) string {
	if plan.Name != "" {
		return "building " + plan.Name
	}
	return fmt.Sprintf("building %d file(s)", len(plan.Units))
}

func buildWithUI(ctx context.Context, title string, plan driver.Plan, opts driver.Options) (*driver.Result, error) {
	events := make(chan driver.Event, 256)
	type outcome struct {
		res *driver.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		opts.Sink = driver.ChannelSink{Ch: events}
		res, err := driver.Build(ctx, plan, opts)
		close(events)
		done <- outcome{res: res, err: err}
	}()

	names := make([]string, 0, len(plan.Units))
	for _, u := range plan.Units {
		names = append(names, u.Name)
	}
	_, uiErr := tea.NewProgram(ui.NewProgressModel(title, names, events), tea.WithOutput(os.Stdout)).Run()
	go func() {
		for range events {
		}
	}()
	out := <-done
	if out.err == nil && uiErr != nil {
		return out.res, uiErr
	}
	return out.res, out.err
}

func printSummary(w io.Writer, res *driver.Result) {
	for _, u := range res.Units {
		line := fmt.Sprintf("%-8s %s", u.Status(), u.Name)
		if u.Output != "" {
			line += " -> " + u.Output
		}
		fmt.Fprintln(w, line)
	}
}

func writeReport(stdout io.Writer, bf buildFlags, res *driver.Result) (err error) {
	w := stdout
	if bf.reportFile != "" {
		f, err := os.Create(bf.reportFile)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	return driver.WriteReport(w, bf.report, driver.NewReport(res))
}
