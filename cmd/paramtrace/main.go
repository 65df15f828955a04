/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Command paramtrace is the offline operator CLI (§11): it exercises the
// Codec, Rewriter, and Stack Inspector without a live managed-runtime
// process, for development, demonstration, and CI-friendly testing.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jacobin-agent/paramtrace/config"
	"github.com/jacobin-agent/paramtrace/globals"
	"github.com/jacobin-agent/paramtrace/shutdown"
	"github.com/jacobin-agent/paramtrace/trace"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "paramtrace",
		Short: "offline operator CLI for the parameter-capture agent",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			trace.Init()
			cfg, err := config.Load(configPath)
			if err != nil {
				trace.Error("failed to load config: " + err.Error())
				shutdown.Exit(shutdown.CLI_ARGUMENT_ERROR)
			}
			trace.SetLevel(cfg.LogLevel)
			globals.InitGlobals().SetDefaults(cfg.TraceDepth, cfg.SkipFrames, cfg.LogLevel.String())
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newDumpCommand())
	root.AddCommand(newRewriteCommand())
	root.AddCommand(newCaptureCommand())
	root.AddCommand(newInspectCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		shutdown.Exit(shutdown.CLI_ARGUMENT_ERROR)
	}
}
