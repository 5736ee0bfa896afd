package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"classgen/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "classgen",
	Short:         "Class layout lowering for LLVM",
	Long:          `classgen lowers class and interface declarations into LLVM IR: instance layouts, dispatch tables, interface tables and runtime type descriptors.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cleanup, err := setupTracing(cmd)
		if err != nil {
			return err
		}
		traceCleanup = cleanup
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeTrace()
	},
}

var traceCleanup func()

// main registers the subcommands and persistent flags, then executes the
// root command. A failing command exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 100, "maximum number of diagnostics per unit")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|unit|module|class|symbol)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring)")
	flags.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	flags.Int("trace-ring-size", 4096, "events kept in ring mode")
	flags.Duration("trace-heartbeat", 0, "heartbeat interval, 0 disables")

	if err := rootCmd.Execute(); err != nil {
		closeTrace()
		os.Exit(1)
	}
}

// closeTrace runs the trace cleanup at most once; a failing command skips
// PersistentPostRun.
func closeTrace() {
	if traceCleanup != nil {
		traceCleanup()
		traceCleanup = nil
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
