// Package main: report command implementation.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"ctoint/internal/alloc"
	"ctoint/internal/callgraph"
	"ctoint/internal/config"
	"ctoint/internal/cst"
	"ctoint/internal/logging"
	"ctoint/internal/rewrite"
	"ctoint/internal/token"
)

var reportCmd = &cobra.Command{
	Use:   "report <path>",
	Short: "Summarize what fix would change, without writing anything",
	Long: `report runs the same analysis pipeline as fix — tokenize, group, find
allocation sites, build the call graph, propagate marks — and prints the
allocation-site counts and which functions would be rewritten and into
which signature shape, for a file or every .c file under a directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	target := args[0]

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	allocators := cfg.ResolveAllocators()

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("stat %s: %w", target, err)
	}

	if !info.IsDir() {
		return reportFile(target, allocators)
	}

	return filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".c") {
			return nil
		}
		return reportFile(path, allocators)
	})
}

func reportFile(path string, allocators []alloc.AllocatorSpec) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	logging.CLIDebug("reporting on %s", path)
	toks := token.Tokenize(src)
	nodes := cst.Group(toks)
	sites := alloc.Analyze(toks, src, allocators)
	graph := callgraph.Build(toks, src, nodes, sites)
	callgraph.Propagate(graph)

	var marked []*callgraph.FuncNode
	for _, fn := range graph.Funcs {
		if rewrite.TransformFor(fn) != rewrite.NONE {
			marked = append(marked, fn)
		}
	}

	unchecked := 0
	for _, s := range sites {
		if !s.IsChecked {
			unchecked++
		}
	}

	fmt.Printf("%s: %d allocation site(s), %d unchecked, %d function(s) to rewrite\n",
		path, len(sites), unchecked, len(marked))

	sort.Slice(marked, func(i, j int) bool { return marked[i].Name < marked[j].Name })
	for _, fn := range marked {
		shape := "void -> int"
		if fn.ReturnsPtr {
			shape = "T* -> int, out-param"
		}
		fmt.Printf("  %-24s %s\n", fn.Name, shape)
	}
	return nil
}
