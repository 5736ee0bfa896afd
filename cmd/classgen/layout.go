package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"classgen/internal/backend/llvm"
	"classgen/internal/diag"
	"classgen/internal/diagfmt"
	"classgen/internal/driver"
	"classgen/internal/layout"
	"classgen/internal/schema"
	"classgen/internal/ui"
)

var (
	layoutClasses []string
	layoutFormat  string
	layoutTriple  string
	layoutPtrSize int
)

func init() {
	layoutCmd.Flags().StringSliceVar(&layoutClasses, "class", nil, "only show these classes (name or module.name)")
	layoutCmd.Flags().StringVar(&layoutFormat, "format", "table", "output format (table|json)")
	layoutCmd.Flags().StringVar(&layoutTriple, "triple", "", "target triple")
	layoutCmd.Flags().IntVar(&layoutPtrSize, "ptr-size", 0, "target pointer size in bytes (4 or 8)")
}

var layoutCmd = &cobra.Command{
	Use:   "layout <file>",
	Short: "Show the resolved layout of the classes in a declaration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if layoutFormat != "table" && layoutFormat != "json" {
			return fmt.Errorf("unsupported format %q (must be table or json)", layoutFormat)
		}
		if layoutPtrSize != 0 && layoutPtrSize != 4 && layoutPtrSize != 8 {
			return fmt.Errorf("unsupported --ptr-size %d (use 4 or 8)", layoutPtrSize)
		}
		colored, err := colorEnabled(cmd, os.Stderr)
		if err != nil {
			return err
		}
		target := layout.TargetFor(layoutTriple, layoutPtrSize)
		bag := diag.NewBag(100)
		rep := &diag.BagReporter{Bag: bag}
		reports, err := classLayouts(cmd, args[0], target, rep)
		bag.Sort()
		diagfmt.Pretty(os.Stderr, bag, diagfmt.PrettyOpts{Color: colored, ShowNotes: true})
		if err != nil {
			return err
		}
		if layoutFormat == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(reports)
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), ui.RenderLayout(reports))
		return err
	},
}

func classLayouts(cmd *cobra.Command, path string, target layout.Target, rep diag.Reporter) ([]llvm.ClassReport, error) {
	prog, err := schema.Options{PtrSize: uint64(target.PtrSize)}.LoadFile(path, rep) // #nosec G115 -- 4 or 8
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(layoutClasses))
	for _, c := range layoutClasses {
		want[c] = true
	}
	l := llvm.New(cmd.Context(), prog, llvm.Config{Target: target})
	var out []llvm.ClassReport
	for _, id := range prog.Classes {
		decl, _ := prog.Types.Class(id)
		if len(want) > 0 && !want[decl.Name] && !want[decl.PrettyName()] {
			continue
		}
		r, err := l.Report(id)
		if err != nil {
			driver.ReportLoweringError(rep, path, err)
			return nil, err
		}
		out = append(out, r)
	}
	if len(want) > 0 && len(out) == 0 {
		return nil, fmt.Errorf("no class named %v in %s", layoutClasses, path)
	}
	return out, nil
}
