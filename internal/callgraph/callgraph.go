// Package callgraph builds per-function nodes from the CST's FUNCTION
// spans, links caller edges, and propagates the "must be refactored" mark
// from allocation-seeded functions up through their callers.
package callgraph

import (
	"ctoint/internal/alloc"
	"ctoint/internal/cst"
	"ctoint/internal/token"
)

// FuncNode describes one function definition and its relationship to the
// rest of the call graph.
type FuncNode struct {
	CstNodeIndex        int
	Name                string
	TokenStart          int // first token of the signature
	ParamsStart         int // token index of the parameter list's '('
	ParamsEnd           int // one past the parameter list's ')'
	BodyStart           int // token index of the opening '{'
	TokenEnd            int // one past the closing '}'
	ReturnsVoid         bool
	ReturnsPtr          bool
	OriginalReturnType  string
	IsMain              bool
	ContainsAllocs      bool
	MarkedForRefactor   bool
	Callers             map[int]struct{} // indices into Graph.Funcs
}

// Graph holds every function node found in one translation unit.
type Graph struct {
	Funcs []*FuncNode
	// byName maps a function name to its index in Funcs, for edge building.
	byName map[string]int
}

// Build constructs the call graph from the CST's FUNCTION nodes and the
// allocation sites already found in the whole token stream.
func Build(toks []token.Token, source []byte, nodes []cst.Node, sites []alloc.Site) *Graph {
	g := &Graph{byName: make(map[string]int)}

	for ni, n := range nodes {
		if n.Kind != cst.FUNCTION {
			continue
		}
		fn := buildFuncNode(toks, source, ni, n)
		g.byName[fn.Name] = len(g.Funcs)
		g.Funcs = append(g.Funcs, fn)
	}

	for _, site := range sites {
		for _, fn := range g.Funcs {
			if site.TokenIndex >= fn.BodyStart && site.TokenIndex < fn.TokenEnd {
				fn.ContainsAllocs = true
				break
			}
		}
	}

	for callerIdx, fn := range g.Funcs {
		for i := fn.BodyStart; i < fn.TokenEnd; i++ {
			if toks[i].Kind != token.IDENTIFIER {
				continue
			}
			name := toks[i].Text(source)
			calleeIdx, ok := g.byName[name]
			if !ok || calleeIdx == callerIdx {
				continue
			}
			next := skipTriviaFwd(toks, i+1)
			if next >= len(toks) || toks[next].Kind != token.LPAREN {
				continue
			}
			callee := g.Funcs[calleeIdx]
			if callee.Callers == nil {
				callee.Callers = make(map[int]struct{})
			}
			callee.Callers[callerIdx] = struct{}{}
		}
	}

	return g
}

func buildFuncNode(toks []token.Token, source []byte, cstIdx int, n cst.Node) *FuncNode {
	lparen := -1
	for i := n.TokenStart; i < n.TokenEnd; i++ {
		if toks[i].Kind == token.LPAREN {
			lparen = i
			break
		}
	}

	nameIdx := skipTriviaBwd(toks, lparen-1)

	rparen := -1
	bodyStart := -1
	depth := 0
	for i := lparen; i < n.TokenEnd; i++ {
		switch toks[i].Kind {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 && rparen == -1 {
				rparen = i
			}
		case token.LBRACE:
			if depth == 0 {
				bodyStart = i
			}
		}
		if bodyStart != -1 {
			break
		}
	}

	// The CST node may open with whitespace; the signature starts at its
	// first significant token.
	returnType := skipTriviaFwd(toks, n.TokenStart)
	returnsVoid, returnsPtr := false, false
	for i := returnType; i < nameIdx; i++ {
		switch toks[i].Kind {
		case token.VOID:
			returnsVoid = true
		case token.STAR:
			returnsPtr = true
		}
	}
	if returnsPtr {
		returnsVoid = false
	}

	name := ""
	if nameIdx >= 0 {
		name = toks[nameIdx].Text(source)
	}

	originalReturnType := ""
	if nameIdx > returnType {
		originalReturnType = string(source[toks[returnType].Start:toks[nameIdx].Start])
	}

	return &FuncNode{
		CstNodeIndex:       cstIdx,
		Name:               name,
		TokenStart:         returnType,
		ParamsStart:        lparen,
		ParamsEnd:          rparen + 1,
		BodyStart:          bodyStart,
		TokenEnd:           n.TokenEnd,
		ReturnsVoid:        returnsVoid,
		ReturnsPtr:         returnsPtr,
		OriginalReturnType: originalReturnType,
		IsMain:             name == "main",
	}
}

// Propagate seeds refactoring on every function that allocates and returns
// an unsafe type (void or pointer), then transitively marks every caller.
// main is marked but propagation does not continue past it to its own
// callers.
func Propagate(g *Graph) {
	var queue []int
	for i, fn := range g.Funcs {
		if fn.ContainsAllocs && (fn.ReturnsVoid || fn.ReturnsPtr) {
			if !fn.MarkedForRefactor {
				fn.MarkedForRefactor = true
				queue = append(queue, i)
			}
		}
	}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		fn := g.Funcs[i]
		if fn.IsMain {
			continue
		}
		for callerIdx := range fn.Callers {
			caller := g.Funcs[callerIdx]
			if !caller.MarkedForRefactor {
				caller.MarkedForRefactor = true
				queue = append(queue, callerIdx)
			}
		}
	}
}

func skipTriviaFwd(toks []token.Token, i int) int {
	for i < len(toks) && toks[i].IsTrivia() {
		i++
	}
	return i
}

func skipTriviaBwd(toks []token.Token, i int) int {
	for i >= 0 && toks[i].IsTrivia() {
		i--
	}
	return i
}
