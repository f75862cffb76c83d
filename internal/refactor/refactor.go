// Package refactor wires the tokenizer, CST grouper, allocation analyzer,
// call graph, and rewriter into the engine's single entry point: bytes in,
// bytes out, never fatal on malformed C.
package refactor

import (
	"strings"

	"ctoint/internal/alloc"
	"ctoint/internal/callgraph"
	"ctoint/internal/cst"
	"ctoint/internal/logging"
	"ctoint/internal/patch"
	"ctoint/internal/rewrite"
	"ctoint/internal/token"
)

// Source runs the full pipeline over one translation unit using the
// built-in allocator allow-list. On a file with no recognized allocator
// call and no marked callee, the output is byte-identical to source.
func Source(source []byte) ([]byte, error) {
	return SourceWithAllocators(source, alloc.DefaultAllocators)
}

// SourceWithAllocators is Source with a caller-supplied allocator
// allow-list, letting internal/config extend or override the defaults.
// A nil source is rejected as InvalidArgument; an empty, non-nil source is
// legal and round-trips to an empty result. A panic inside the pipeline is
// recovered and returned as an OutOfMemory error when its message mentions
// running out of memory, and as an InternalInvariant error otherwise.
func SourceWithAllocators(source []byte, allocators []alloc.AllocatorSpec) (out []byte, err error) {
	if source == nil {
		return nil, invalidArgument("source must not be nil")
	}

	defer func() {
		if r := recover(); r == nil {
			return
		} else if msg := toPanicMessage(r); strings.Contains(msg, "out of memory") {
			// A genuine Go runtime OOM calls runtime.throw, which recover
			// cannot intercept; this branch only exists so an allocator
			// that panics instead (a custom one, in a future embedding of
			// this package) is reported as OutOfMemory rather than
			// InternalInvariant.
			out, err = nil, outOfMemory(msg)
		} else {
			out, err = nil, &Error{Kind: InternalInvariant, Msg: msg}
		}
	}()

	toks := token.Tokenize(source)
	logging.TokenizerDebug("tokenized %d bytes into %d tokens", len(source), len(toks))

	nodes := cst.Group(toks)
	logging.CSTDebug("grouped into %d top-level nodes", len(nodes))

	sites := alloc.Analyze(toks, source, allocators)
	logging.AllocDebug("found %d allocation sites", len(sites))

	graph := callgraph.Build(toks, source, nodes, sites)
	callgraph.Propagate(graph)
	logging.CallGraphDebug("built %d function nodes, %d marked for refactor", len(graph.Funcs), countMarked(graph))

	callees := markedCallees(graph)

	var patches []patch.Patch
	for _, fn := range graph.Funcs {
		tr := rewrite.TransformFor(fn)
		patches = append(patches, rewrite.Signature(toks, source, fn, tr)...)
		patches = append(patches, rewrite.Body(toks, source, fn, sites, callees, tr)...)
	}
	logging.RewriteDebug("emitted %d patches across %d functions", len(patches), len(graph.Funcs))

	result := patch.Merge(toks, source, patches)
	logging.PatchDebug("merged output is %d bytes (input was %d)", len(result), len(source))

	return result, nil
}

func countMarked(g *callgraph.Graph) int {
	n := 0
	for _, fn := range g.Funcs {
		if fn.MarkedForRefactor {
			n++
		}
	}
	return n
}

func toPanicMessage(r interface{}) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	if s, ok := r.(string); ok {
		return s
	}
	return "panic during refactor pipeline"
}

// markedCallees collects every marked function whose signature actually
// changes, keyed by name, for the body rewriter's call-site pass. A marked
// function whose own Transform is NONE needs no call-site rewriting at its
// callers, so it is left out of the map.
func markedCallees(graph *callgraph.Graph) map[string]rewrite.CalleeInfo {
	callees := make(map[string]rewrite.CalleeInfo)
	for _, fn := range graph.Funcs {
		if tr := rewrite.TransformFor(fn); tr != rewrite.NONE {
			callees[fn.Name] = rewrite.CalleeInfo{
				Transform:          tr,
				OriginalReturnType: rewrite.CalleeReturnType(fn),
			}
		}
	}
	return callees
}
