// Package alloc locates calls to recognized heap allocators and classifies
// each site as checked or unchecked, flagging uses that happen before any
// null/error check.
package alloc

import "ctoint/internal/token"

// ResultShape describes where an allocator's result lands.
type ResultShape int

const (
	ReturnedPointer ResultShape = iota // result is the call's return value
	OutParamPointer                    // result is written through an out-parameter (e.g. asprintf)
)

// CheckStyle describes how a correct guard against this allocator's
// failure is shaped.
type CheckStyle int

const (
	CheckPtrNull CheckStyle = iota
	CheckIntNegative
	CheckIntNonzero
)

// AllocatorSpec names a recognized allocator and how to check its result.
type AllocatorSpec struct {
	Name        string
	ResultShape ResultShape
	CheckStyle  CheckStyle
}

// DefaultAllocators is the built-in allow-list of recognized allocators. A
// project may extend it via internal/config.
var DefaultAllocators = []AllocatorSpec{
	{Name: "malloc", ResultShape: ReturnedPointer, CheckStyle: CheckPtrNull},
	{Name: "calloc", ResultShape: ReturnedPointer, CheckStyle: CheckPtrNull},
	{Name: "realloc", ResultShape: ReturnedPointer, CheckStyle: CheckPtrNull},
	{Name: "strdup", ResultShape: ReturnedPointer, CheckStyle: CheckPtrNull},
	{Name: "strndup", ResultShape: ReturnedPointer, CheckStyle: CheckPtrNull},
	{Name: "asprintf", ResultShape: OutParamPointer, CheckStyle: CheckIntNegative},
	{Name: "vasprintf", ResultShape: OutParamPointer, CheckStyle: CheckIntNegative},
}

// Site is one call to a recognized allocator.
type Site struct {
	TokenIndex      int
	VarName         string
	HasVar          bool
	IsChecked       bool
	UsedBeforeCheck bool
	IsReturnStmt    bool
	Spec            AllocatorSpec
}

// Analyze scans toks for calls to any allocator in allocators and returns
// the sites in token-index order.
func Analyze(toks []token.Token, source []byte, allocators []AllocatorSpec) []Site {
	byName := make(map[string]AllocatorSpec, len(allocators))
	for _, a := range allocators {
		byName[a.Name] = a
	}

	var sites []Site
	for i, tok := range toks {
		if tok.Kind != token.IDENTIFIER {
			continue
		}
		spec, ok := byName[tok.Text(source)]
		if !ok {
			continue
		}
		if !isCall(toks, i) {
			continue
		}
		sites = append(sites, buildSite(toks, source, i, spec))
	}
	return sites
}

func isCall(toks []token.Token, i int) bool {
	next := skipTriviaFwd(toks, i+1)
	return next < len(toks) && toks[next].Kind == token.LPAREN
}

func buildSite(toks []token.Token, source []byte, i int, spec AllocatorSpec) Site {
	site := Site{TokenIndex: i, Spec: spec}

	prev := skipTriviaBwd(toks, i-1)
	if prev >= 0 && toks[prev].Kind == token.RETURN {
		site.IsReturnStmt = true
		return site
	}

	if name, ok := findAssignedVar(toks, source, i); ok {
		site.VarName = name
		site.HasVar = true
	}

	site.IsChecked = siteGuarded(toks, source, i, site)
	site.UsedBeforeCheck = usedBeforeCheck(toks, source, i, site)
	return site
}

// findAssignedVar walks backward from the call to the statement boundary
// looking for an ASSIGN; the nearest preceding identifier is the assigned
// variable.
func findAssignedVar(toks []token.Token, source []byte, i int) (string, bool) {
	for k := i - 1; k >= 0; k-- {
		switch toks[k].Kind {
		case token.SEMICOLON, token.LBRACE, token.RBRACE:
			return "", false
		case token.ASSIGN:
			ident := skipTriviaBwd(toks, k-1)
			if ident >= 0 && toks[ident].Kind == token.IDENTIFIER {
				return toks[ident].Text(source), true
			}
			return "", false
		}
	}
	return "", false
}

// siteGuarded reports whether a site already has a failure check: (a) the
// call sits directly inside an if/while condition, or (b) the assigned
// variable is later checked inside such a condition.
func siteGuarded(toks []token.Token, source []byte, i int, site Site) bool {
	if callInsideCondition(toks, i) {
		return true
	}
	if !site.HasVar {
		return false
	}
	stmtEnd := nextSemicolon(toks, i)
	checkIdx, _ := scanVarUsage(toks, source, stmtEnd, site.VarName)
	return checkIdx != -1
}

func usedBeforeCheck(toks []token.Token, source []byte, i int, site Site) bool {
	if !site.HasVar {
		return false
	}
	stmtEnd := nextSemicolon(toks, i)
	checkIdx, useIdx := scanVarUsage(toks, source, stmtEnd, site.VarName)
	if useIdx == -1 {
		return false
	}
	return checkIdx == -1 || useIdx < checkIdx
}

// callInsideCondition walks backward across balanced parens from i,
// stopping at the nearest statement boundary. Each unmatched '(' met on the
// way out is inspected: one preceded by IF or WHILE means the call sits in
// that condition; a grouping or argument-list paren is stepped over and the
// walk continues outward.
func callInsideCondition(toks []token.Token, i int) bool {
	depth := 0
	for k := i - 1; k >= 0; k-- {
		switch toks[k].Kind {
		case token.SEMICOLON, token.LBRACE, token.RBRACE:
			return false
		case token.RPAREN:
			depth++
		case token.LPAREN:
			if depth == 0 {
				prev := skipTriviaBwd(toks, k-1)
				if prev >= 0 && (toks[prev].Kind == token.IF || toks[prev].Kind == token.WHILE) {
					return true
				}
				continue
			}
			depth--
		}
	}
	return false
}

func nextSemicolon(toks []token.Token, i int) int {
	for k := i; k < len(toks); k++ {
		if toks[k].Kind == token.SEMICOLON {
			return k + 1
		}
	}
	return len(toks)
}

// scanVarUsage scans forward from stmtEnd to the end of the token stream
// for the first occurrence of var inside an if/while condition (checkIdx)
// and the first occurrence of var dereferenced via prefix '*', '->', or
// '[' (useIdx). Either may be -1 if not found.
func scanVarUsage(toks []token.Token, source []byte, stmtEnd int, varName string) (checkIdx, useIdx int) {
	checkIdx, useIdx = -1, -1
	for k := stmtEnd; k < len(toks); k++ {
		if toks[k].Kind != token.IDENTIFIER || toks[k].Text(source) != varName {
			continue
		}
		if useIdx == -1 && isDerefUse(toks, source, k) {
			useIdx = k
		}
		if checkIdx == -1 && isInsideCondition(toks, k) {
			checkIdx = k
		}
		if checkIdx != -1 && useIdx != -1 {
			return
		}
	}
	return
}

// isDerefUse reports whether the identifier at k is immediately
// dereferenced: preceded by a prefix '*', or followed by '->' or '['.
func isDerefUse(toks []token.Token, source []byte, k int) bool {
	next := skipTriviaFwd(toks, k+1)
	if next < len(toks) && (toks[next].Kind == token.ARROW || toks[next].Kind == token.LBRACKET) {
		return true
	}
	prev := skipTriviaBwd(toks, k-1)
	if prev >= 0 && toks[prev].Kind == token.STAR {
		beforeStar := skipTriviaBwd(toks, prev-1)
		if beforeStar < 0 || !isValueEnd(toks[beforeStar].Kind) {
			return true
		}
	}
	return false
}

// isValueEnd reports whether kind can end an expression (so a following
// '*' reads as multiplication, not a dereference).
func isValueEnd(k token.Kind) bool {
	switch k {
	case token.IDENTIFIER, token.NUMBER_LITERAL, token.RPAREN, token.RBRACKET:
		return true
	default:
		return false
	}
}

// isInsideCondition reports whether token k sits inside an enclosing
// if/while condition's parens, however deeply parenthesized within them.
func isInsideCondition(toks []token.Token, k int) bool {
	depth := 0
	for i := k - 1; i >= 0; i-- {
		switch toks[i].Kind {
		case token.SEMICOLON, token.LBRACE, token.RBRACE:
			return false
		case token.RPAREN:
			depth++
		case token.LPAREN:
			if depth == 0 {
				prev := skipTriviaBwd(toks, i-1)
				if prev >= 0 && (toks[prev].Kind == token.IF || toks[prev].Kind == token.WHILE) {
					return true
				}
				continue
			}
			depth--
		}
	}
	return false
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
