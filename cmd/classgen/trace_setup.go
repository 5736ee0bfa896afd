package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"classgen/internal/trace"
)

// traceConfig reads the --trace* persistent flags. Naming an output without
// a level records units and lowering passes.
func traceConfig(cmd *cobra.Command) (trace.Config, error) {
	flags := cmd.Root().PersistentFlags()
	out, _ := flags.GetString("trace")
	levelFlag, _ := flags.GetString("trace-level")
	modeFlag, _ := flags.GetString("trace-mode")
	formatFlag, _ := flags.GetString("trace-format")
	ringSize, _ := flags.GetInt("trace-ring-size")

	var cfg trace.Config
	level, err := trace.ParseLevel(levelFlag)
	if err != nil {
		return cfg, err
	}
	if level == trace.LevelOff && out != "" {
		level = trace.LevelModule
	}
	mode, err := trace.ParseMode(modeFlag)
	if err != nil {
		return cfg, err
	}
	format, err := trace.ParseFormat(formatFlag)
	if err != nil {
		return cfg, err
	}
	return trace.Config{Level: level, Mode: mode, Format: format, Path: out, RingSize: ringSize}, nil
}

// setupTracing installs the recorder on the command context and returns
// the function that stops the heartbeat and closes the recorder.
func setupTracing(cmd *cobra.Command) (func(), error) {
	cfg, err := traceConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Level == trace.LevelOff {
		return func() {}, nil
	}
	rec, err := trace.New(cfg)
	if err != nil {
		return nil, err
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), rec))

	every, _ := cmd.Root().PersistentFlags().GetDuration("trace-heartbeat")
	stop := trace.StartHeartbeat(rec, every)
	return func() {
		stop()
		if err := rec.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: %v\n", err)
		}
	}, nil
}
