// Package main: fix command implementations.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"ctoint/internal/alloc"
	"ctoint/internal/config"
	"ctoint/internal/diff"
	"ctoint/internal/logging"
	"ctoint/internal/refactor"
)

var (
	inPlace  bool
	showDiff bool
	watch    bool
	outPath  string
)

var fixCmd = &cobra.Command{
	Use:   "fix <path> [out]",
	Short: "Rewrite unchecked allocation sites into checked int-returning code",
	Long: `fix rewrites the given C source file (or, with --in-place, every .c file
under the given directory) so that allocation failures are checked and
propagated.

  ctoint fix foo.c foo.fixed.c   write the rewritten file to foo.fixed.c
  ctoint fix foo.c --diff        print a unified diff of the rewrite, write nothing
  ctoint fix ./src --in-place    rewrite every .c file under ./src in place
  ctoint fix ./src --in-place --watch
                                 rewrite on save, watching ./src for changes`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runFix,
}

func init() {
	fixCmd.Flags().BoolVar(&inPlace, "in-place", false, "rewrite files in place (path must be a directory)")
	fixCmd.Flags().BoolVar(&showDiff, "diff", false, "print a unified diff instead of writing output")
	fixCmd.Flags().BoolVar(&watch, "watch", false, "keep running and re-fix files on change (requires --in-place)")
	fixCmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (alternative to the positional [out] argument)")
}

func runFix(cmd *cobra.Command, args []string) error {
	target := args[0]
	if len(args) == 2 {
		outPath = args[1]
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("stat %s: %w", target, err)
	}

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	allocators := cfg.ResolveAllocators()

	if info.IsDir() {
		if !inPlace {
			return fmt.Errorf("%s is a directory; pass --in-place to rewrite a tree", target)
		}
		if err := fixTree(target, allocators); err != nil {
			return err
		}
		if watch {
			return watchTree(target, allocators)
		}
		return nil
	}

	switch {
	case inPlace:
		return fixFile(target, target, allocators)
	case showDiff:
		return printDiff(target, allocators)
	case outPath != "":
		return fixFile(target, outPath, allocators)
	default:
		return fmt.Errorf("an output path is required unless --in-place or --diff is set")
	}
}

// fixFile reads in, rewrites it, and writes the result to out. When
// cfg.InPlaceBackup is set and out == in, the original is preserved as
// in + ".orig" first.
func fixFile(in, out string, allocators []alloc.AllocatorSpec) error {
	src, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}

	logging.CLIDebug("fixing %s -> %s", in, out)
	result, err := refactor.SourceWithAllocators(src, allocators)
	if err != nil {
		logging.CLIError("refactor failed for %s: %v", in, err)
		return fmt.Errorf("refactor %s: %w", in, err)
	}

	if out == in {
		if err := backupIfConfigured(in, src); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", out, err)
	}
	if err := os.WriteFile(out, result, 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logging.CLI("fixed %s", in)
	return nil
}

func backupIfConfigured(in string, original []byte) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return err
	}
	if !cfg.InPlaceBackup {
		return nil
	}
	return os.WriteFile(in+".orig", original, 0644)
}

func printDiff(in string, allocators []alloc.AllocatorSpec) error {
	src, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}
	result, err := refactor.SourceWithAllocators(src, allocators)
	if err != nil {
		return fmt.Errorf("refactor %s: %w", in, err)
	}

	fd := diff.ComputeDiff(in, in, string(src), string(result))
	out := diff.Render(fd)
	if out == "" {
		fmt.Printf("%s: no changes\n", in)
		return nil
	}
	fmt.Print(out)
	return nil
}

func fixTree(root string, allocators []alloc.AllocatorSpec) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".c") {
			return nil
		}
		return fixFile(path, path, allocators)
	})
}

// watchTree keeps ctoint running, rewriting each .c file under root again
// whenever fsnotify reports it was written. Saves are debounced per path so
// an editor's multiple write events for one save collapse into one fix.
func watchTree(root string, allocators []alloc.AllocatorSpec) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	logging.CLI("watching %s for changes", root)

	const debounce = 300 * time.Millisecond
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".c") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logging.CLIError("watcher error: %v", err)

		case <-ticker.C:
			now := time.Now()
			for path, at := range pending {
				if now.Sub(at) < debounce {
					continue
				}
				delete(pending, path)
				if err := fixFile(path, path, allocators); err != nil {
					logging.CLIError("watch-fix %s: %v", path, err)
				}
			}
		}
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
