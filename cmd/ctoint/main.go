// Package main implements the ctoint CLI - a refactoring engine that
// rewrites unchecked C allocation sites into checked int-returning calls.
//
// This file serves as the entry point and command registration hub. Command
// implementations are split across cmd_*.go files.
//
// # File Index
//
// Entry Point & Global State:
//   - main.go       - Entry point, rootCmd, global flags, init()
//
// Commands:
//   - cmd_fix.go    - fixCmd: rewrite a file, a directory (--in-place), or
//                     preview a rewrite (--diff); optional --watch via fsnotify
//   - cmd_report.go - reportCmd: summarize what a refactor would change
//     without writing anything
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ctoint/internal/logging"
)

var (
	verbose    bool
	workspace  string
	configPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ctoint",
	Short: "ctoint rewrites unchecked C allocations into checked int-returning functions",
	Long: `ctoint is a refactoring engine for C source: it finds functions whose
return value or control flow depends on an unchecked allocation, and rewrites
them so that allocation failures are checked and propagated as an int return
code rather than risking a null dereference or silent corruption.

  void *make_thing(void)        ->  int make_thing(void **out)
  void  load_all(void)          ->  int  load_all(void)

Run "ctoint fix <file> <out>" to rewrite a single file, or "ctoint fix <dir>
--in-place" to rewrite a whole tree.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		} else if abs, err := filepath.Abs(ws); err == nil {
			ws = abs
		}
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".ctoint.yaml", "path to config file, relative to the workspace")

	rootCmd.AddCommand(fixCmd, reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path used for this invocation,
// anchored at the workspace when configPath is relative.
func resolveConfigPath() string {
	ws := workspace
	if ws == "" {
		ws, _ = os.Getwd()
	}
	if filepath.IsAbs(configPath) {
		return configPath
	}
	return filepath.Join(ws, configPath)
}
