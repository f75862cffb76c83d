// Package diff renders the before/after preview shown by `ctoint fix --diff`.
// It computes line-level hunks with
// sergi/go-diff's diffmatchpatch engine rather than a hand-rolled LCS, then
// formats them as unified diff text.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineType is what a rendered diff line represents.
type LineType int

const (
	LineContext LineType = iota // unchanged line, shown for orientation
	LineAdded                   // line the rewrite introduced
	LineRemoved                 // line the rewrite dropped
	LineHeader                  // unified-diff header line
)

// Line is a single line of one hunk, numbered in whichever of the old or new
// file it belongs to.
type Line struct {
	LineNum int
	Content string
	Type    LineType
}

// Hunk is one contiguous block of changed lines plus its surrounding context.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// FileDiff is the rewrite's effect on a single translation unit: its path
// pair (for fix, OldPath and NewPath are the same file) and the hunks
// between its pre- and post-refactor content.
type FileDiff struct {
	OldPath  string
	NewPath  string
	Hunks    []Hunk
	IsNew    bool
	IsDelete bool
	IsBinary bool
}

// Engine wraps the diffmatchpatch line-diff so ComputeDiff doesn't rebuild
// one per call. ctoint never diffs the same pair of contents twice in one
// run — fix --diff computes a file's diff once — so unlike a long-lived
// diff service, Engine carries no result cache.
type Engine struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewEngine creates a new diff engine for comparing original source against
// refactor.Source's rewritten output.
func NewEngine() *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // a refactor's output is bounded by the input file size, not worth bounding here
	return &Engine{dmp: dmp}
}

// DefaultEngine is the engine used by the package-level ComputeDiff.
var DefaultEngine = NewEngine()

// ComputeDiff builds a FileDiff between a C source file's pre-refactor and
// post-refactor content, for display by `ctoint fix --diff`.
func (e *Engine) ComputeDiff(oldPath, newPath, oldContent, newContent string) *FileDiff {
	fileDiff := &FileDiff{
		OldPath: oldPath,
		NewPath: newPath,
		Hunks:   make([]Hunk, 0),
	}

	if oldContent == "" {
		fileDiff.IsNew = true
	}
	if newContent == "" {
		fileDiff.IsDelete = true
	}

	// Reduce to a line-level diff first so the char-level DiffMain never
	// splits a rewrite's multi-line patch text across a line boundary.
	a, b, lineArray := e.dmp.DiffLinesToChars(oldContent, newContent)
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCleanupSemantic(diffs)
	diffs = e.dmp.DiffCharsToLines(diffs, lineArray)

	fileDiff.Hunks = e.convertToHunks(diffs, 3) // 3 lines of context, like diff -u

	return fileDiff
}

// ComputeDiff is a convenience function using the default engine.
func ComputeDiff(oldPath, newPath, oldContent, newContent string) *FileDiff {
	return DefaultEngine.ComputeDiff(oldPath, newPath, oldContent, newContent)
}

// convertToHunks turns diffmatchpatch's line diffs into ctoint's Hunk shape,
// grouped with contextLines of unchanged lines on either side of a change.
func (e *Engine) convertToHunks(diffs []diffmatchpatch.Diff, contextLines int) []Hunk {
	if len(diffs) == 0 {
		return nil
	}

	operations := e.diffsToOperations(diffs)
	if len(operations) == 0 {
		return nil
	}

	return e.groupIntoHunks(operations, contextLines)
}

// operation is one line, classified against the old/new file and numbered
// in whichever side it belongs to.
type operation struct {
	typ     LineType
	oldLine int
	newLine int
	content string
}

// diffsToOperations flattens diffmatchpatch's Equal/Delete/Insert runs into
// one operation per line, tracking old- and new-file line numbers as it goes.
func (e *Engine) diffsToOperations(diffs []diffmatchpatch.Diff) []operation {
	operations := make([]operation, 0)
	oldLine := 0
	newLine := 0

	for _, d := range diffs {
		lines := strings.Split(d.Text, "\n")

		if len(lines) == 1 && lines[0] == "" && d.Type != diffmatchpatch.DiffEqual {
			continue
		}

		// strings.Split on a trailing newline yields a spurious final "".
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}

		for i, line := range lines {
			if i == len(lines)-1 && line == "" && len(lines) > 1 {
				continue
			}

			switch d.Type {
			case diffmatchpatch.DiffEqual:
				operations = append(operations, operation{typ: LineContext, oldLine: oldLine, newLine: newLine, content: line})
				oldLine++
				newLine++

			case diffmatchpatch.DiffDelete:
				operations = append(operations, operation{typ: LineRemoved, oldLine: oldLine, newLine: -1, content: line})
				oldLine++

			case diffmatchpatch.DiffInsert:
				operations = append(operations, operation{typ: LineAdded, oldLine: -1, newLine: newLine, content: line})
				newLine++
			}
		}
	}

	return operations
}

// groupIntoHunks collapses a run of context longer than contextLines into a
// hunk boundary, the way diff -u's -U flag does.
func (e *Engine) groupIntoHunks(ops []operation, contextLines int) []Hunk {
	if len(ops) == 0 {
		return nil
	}

	hunks := make([]Hunk, 0)
	var currentHunk *Hunk
	lastChangeIdx := -1

	for i, op := range ops {
		isChange := op.typ != LineContext

		if isChange {
			if currentHunk == nil {
				currentHunk = &Hunk{Lines: make([]Line, 0)}

				start := i - contextLines
				if start < 0 {
					start = 0
				}

				for j := start; j < i; j++ {
					if ops[j].typ == LineContext {
						currentHunk.Lines = append(currentHunk.Lines, Line{
							LineNum: ops[j].oldLine + 1,
							Content: ops[j].content,
							Type:    LineContext,
						})
					}
				}

				if start < len(ops) {
					currentHunk.OldStart = ops[start].oldLine + 1
					currentHunk.NewStart = ops[start].newLine + 1
					if ops[start].oldLine < 0 {
						currentHunk.OldStart = 0
					}
					if ops[start].newLine < 0 {
						currentHunk.NewStart = 0
					}
				}
			}
			lastChangeIdx = i
		}

		if currentHunk != nil {
			lineNum := op.oldLine + 1
			if op.typ == LineAdded {
				lineNum = op.newLine + 1
			}
			currentHunk.Lines = append(currentHunk.Lines, Line{
				LineNum: lineNum,
				Content: op.content,
				Type:    op.typ,
			})

			if op.typ == LineContext && i-lastChangeIdx > contextLines {
				trimTo := len(currentHunk.Lines) - (i - lastChangeIdx - contextLines)
				if trimTo > 0 && trimTo < len(currentHunk.Lines) {
					currentHunk.Lines = currentHunk.Lines[:trimTo]
				}

				e.computeHunkCounts(currentHunk)
				hunks = append(hunks, *currentHunk)
				currentHunk = nil
			}
		}
	}

	if currentHunk != nil && len(currentHunk.Lines) > 0 {
		e.computeHunkCounts(currentHunk)
		hunks = append(hunks, *currentHunk)
	}

	return hunks
}

// computeHunkCounts fills in hunk.OldCount and hunk.NewCount from its Lines,
// for the unified diff header's "@@ -OldStart,OldCount +NewStart,NewCount @@".
func (e *Engine) computeHunkCounts(hunk *Hunk) {
	for _, line := range hunk.Lines {
		if line.Type == LineRemoved || line.Type == LineContext {
			hunk.OldCount++
		}
		if line.Type == LineAdded || line.Type == LineContext {
			hunk.NewCount++
		}
	}
}

// Render formats a FileDiff as unified diff text, the form `ctoint fix
// --diff` prints to stdout.
func Render(fd *FileDiff) string {
	if fd == nil || len(fd.Hunks) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n", fd.OldPath)
	fmt.Fprintf(&b, "+++ %s\n", fd.NewPath)

	for _, h := range fd.Hunks {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, line := range h.Lines {
			switch line.Type {
			case LineAdded:
				b.WriteString("+")
			case LineRemoved:
				b.WriteString("-")
			default:
				b.WriteString(" ")
			}
			b.WriteString(line.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}
