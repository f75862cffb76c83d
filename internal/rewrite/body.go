package rewrite

import (
	"fmt"
	"strings"

	"ctoint/internal/alloc"
	"ctoint/internal/callgraph"
	"ctoint/internal/patch"
	"ctoint/internal/token"
)

// Body emits the patches that make one function's body check allocations
// and propagate failures from marked callees, plus the return-statement
// rewrite transform calls for. callees maps the name of every marked
// function (fn itself included, so recursive calls are rewritten too)
// whose signature actually changed (Transform != NONE) to how it
// changed; a marked function whose signature didn't change needs no
// call-site rewriting and should not appear in the map.
func Body(toks []token.Token, source []byte, fn *callgraph.FuncNode, sites []alloc.Site, callees map[string]CalleeInfo, transform Transform) []patch.Patch {
	bodySites := filterSites(sites, fn.BodyStart, fn.TokenEnd)

	var patches []patch.Patch
	patches = append(patches, uncheckedAllocPatches(toks, source, bodySites)...)

	calleeP, usesRC := calleePatches(toks, source, fn.BodyStart, fn.TokenEnd, callees)
	patches = append(patches, calleeP...)

	patches = append(patches, returnPatches(toks, source, fn, sites, transform)...)

	if usesRC {
		patches = append(patches, patch.Patch{StartToken: fn.BodyStart + 1, EndToken: fn.BodyStart + 1, Text: "\n  int rc = 0;"})
	}

	return patches
}

func filterSites(sites []alloc.Site, start, end int) []alloc.Site {
	var out []alloc.Site
	for _, s := range sites {
		if s.TokenIndex >= start && s.TokenIndex < end {
			out = append(out, s)
		}
	}
	return out
}

// uncheckedAllocPatches injects a failure check right after the statement
// of every unchecked, variable-assigned, non-return allocation site. A
// self-reassigning realloc (`p = realloc(p, n);`) gets the special
// temp-and-reassign rewrite instead of a bare check, since checking and
// reassigning through the same variable would leak the original block on
// failure.
func uncheckedAllocPatches(toks []token.Token, source []byte, sites []alloc.Site) []patch.Patch {
	var patches []patch.Patch
	for _, site := range sites {
		if !site.HasVar || site.IsChecked || site.IsReturnStmt {
			continue
		}
		lparen := skipTriviaFwd(toks, site.TokenIndex+1)
		rparen := matchingRParen(toks, lparen)
		if rparen == -1 {
			continue
		}

		if site.Spec.Name == "realloc" && firstArgIsVar(toks, source, lparen, rparen, site.VarName) {
			stStart := statementStart(toks, site.TokenIndex-1)
			stEnd := statementEnd(toks, rparen)
			rest := argsAfterFirst(toks, source, lparen, rparen)
			newText := fmt.Sprintf(
				"{ void *_safe_tmp = realloc(%s, %s); if (!_safe_tmp) return ENOMEM; %s = _safe_tmp; }",
				site.VarName, rest, site.VarName)
			patches = append(patches, patch.Patch{StartToken: stStart, EndToken: stEnd, Text: newText})
			continue
		}

		stEnd := statementEnd(toks, rparen)
		patches = append(patches, patch.Patch{StartToken: stEnd, EndToken: stEnd, Text: checkTextFor(site)})
	}
	return patches
}

func checkTextFor(site alloc.Site) string {
	switch site.Spec.CheckStyle {
	case alloc.CheckIntNegative:
		return fmt.Sprintf("\n  if (%s < 0) { return ENOMEM; }", site.VarName)
	case alloc.CheckIntNonzero:
		return fmt.Sprintf("\n  if (%s != 0) { return ENOMEM; }", site.VarName)
	default: // CheckPtrNull
		return fmt.Sprintf("\n  if (!%s) { return ENOMEM; }", site.VarName)
	}
}

func firstArgIsVar(toks []token.Token, source []byte, lparen, rparen int, varName string) bool {
	idx := skipTriviaFwd(toks, lparen+1)
	return idx < rparen && toks[idx].Kind == token.IDENTIFIER && toks[idx].Text(source) == varName
}

func argsAfterFirst(toks []token.Token, source []byte, lparen, rparen int) string {
	idx := skipTriviaFwd(toks, lparen+1)
	comma := skipTriviaFwd(toks, idx+1)
	if comma < rparen && toks[comma].Kind == token.COMMA {
		start := skipTriviaFwd(toks, comma+1)
		return strings.TrimSpace(text(toks, source, start, rparen))
	}
	return ""
}

// calleePatches rewrites every call site to a marked callee whose signature
// changed. VOID_TO_INT callees are always rewritten as a bare statement
// (prepend "rc =", append the check) regardless of how the call is used,
// since a void call can't carry a value worth hoisting or assigning.
// RET_PTR_TO_ARG callees are classified by the token preceding the call:
// an ASSIGN means assignment form (declaration or plain), a statement
// boundary means discarded-value form, anything else is a nested
// subexpression that gets hoisted into a temporary above the statement.
func calleePatches(toks []token.Token, source []byte, bodyStart, bodyEnd int, callees map[string]CalleeInfo) ([]patch.Patch, bool) {
	var patches []patch.Patch
	usesRC := false
	hoistCounter := 0

	for i := bodyStart; i < bodyEnd; i++ {
		if toks[i].Kind != token.IDENTIFIER {
			continue
		}
		name := toks[i].Text(source)
		info, ok := callees[name]
		if !ok {
			continue
		}
		next := skipTriviaFwd(toks, i+1)
		if next >= bodyEnd || toks[next].Kind != token.LPAREN {
			continue
		}
		lparen := next
		rparen := matchingRParen(toks, lparen)
		if rparen == -1 {
			continue
		}

		if info.Transform == VOID_TO_INT {
			stEnd := statementEnd(toks, rparen)
			patches = append(patches,
				patch.Patch{StartToken: i, EndToken: i, Text: "rc = "},
				patch.Patch{StartToken: stEnd, EndToken: stEnd, Text: "\n  if (rc != 0) return rc;"},
			)
			usesRC = true
			continue
		}

		prev := skipTriviaBwd(toks, i-1)
		switch {
		case prev >= 0 && toks[prev].Kind == token.ASSIGN:
			assignIdx := prev
			varIdx := skipTriviaBwd(toks, assignIdx-1)
			if varIdx < 0 || toks[varIdx].Kind != token.IDENTIFIER {
				continue
			}
			varName := toks[varIdx].Text(source)
			stStart := statementStart(toks, varIdx-1)
			firstTokIdx := skipTriviaFwd(toks, stStart)
			isDecl := firstTokIdx < varIdx && token.IsTypeStart(toks[firstTokIdx].Kind)

			if isDecl {
				stEnd := statementEnd(toks, rparen)
				outArg := ", &" + varName
				if argsEmptyBetween(toks, lparen, rparen) {
					outArg = "&" + varName
				}
				patches = append(patches,
					patch.Patch{StartToken: assignIdx, EndToken: assignIdx + 1, Text: "; rc ="},
					patch.Patch{StartToken: rparen, EndToken: rparen, Text: outArg},
					patch.Patch{StartToken: stEnd, EndToken: stEnd, Text: "\n  if (rc != 0) return rc;"},
				)
			} else {
				stEnd := statementEnd(toks, rparen)
				inner := strings.TrimSpace(text(toks, source, lparen+1, rparen))
				newArgs := inner + ", &" + varName
				if inner == "" {
					newArgs = "&" + varName
				}
				newText := fmt.Sprintf("rc = %s(%s); if (rc != 0) return rc;", name, newArgs)
				patches = append(patches, patch.Patch{StartToken: stStart, EndToken: stEnd, Text: newText})
			}
			usesRC = true

		case prev < 0 || toks[prev].Kind == token.SEMICOLON || toks[prev].Kind == token.LBRACE || toks[prev].Kind == token.RBRACE:
			stEnd := statementEnd(toks, rparen)
			patches = append(patches,
				patch.Patch{StartToken: i, EndToken: i, Text: "rc = "},
				patch.Patch{StartToken: stEnd, EndToken: stEnd, Text: "\n  if (rc != 0) return rc;"},
			)
			usesRC = true

		default:
			tmpName := fmt.Sprintf("_tmp_cdd_%d", hoistCounter)
			hoistCounter++
			stStart := statementStart(toks, i-1)
			inner := strings.TrimSpace(text(toks, source, lparen+1, rparen))
			newArgs := inner + ", &" + tmpName
			if inner == "" {
				newArgs = "&" + tmpName
			}
			declText := fmt.Sprintf("%s %s; rc = %s(%s); if (rc != 0) return rc;\n  ", info.OriginalReturnType, tmpName, name, newArgs)
			patches = append(patches,
				patch.Patch{StartToken: stStart, EndToken: stStart, Text: declText},
				patch.Patch{StartToken: i, EndToken: rparen + 1, Text: tmpName},
			)
			usesRC = true
		}
	}

	return patches, usesRC
}

// returnPatches rewrites every RETURN in fn's body per transform. NONE
// leaves every return statement untouched.
func returnPatches(toks []token.Token, source []byte, fn *callgraph.FuncNode, sites []alloc.Site, transform Transform) []patch.Patch {
	var patches []patch.Patch

	switch transform {
	case VOID_TO_INT:
		for i := fn.BodyStart; i < fn.TokenEnd; i++ {
			if toks[i].Kind != token.RETURN {
				continue
			}
			semi := findSemicolon(toks, i+1, fn.TokenEnd)
			if semi == -1 {
				continue
			}
			patches = append(patches, patch.Patch{StartToken: i, EndToken: semi + 1, Text: "return 0;"})
		}
		if !endsWithReturn(toks, fn) {
			insAt := fn.TokenEnd - 1
			patches = append(patches, patch.Patch{StartToken: insAt, EndToken: insAt, Text: "\n  return 0;\n"})
		}

	case RET_PTR_TO_ARG:
		// _safe_ret is a local temporary: it must never inherit fn's own
		// storage-class specifier (static/inline/extern), so strip it
		// before deriving the pointee type.
		_, rest := splitStorageClass(fn.OriginalReturnType)
		pointee := strings.TrimSpace(pointeeType(rest))
		for i := fn.BodyStart; i < fn.TokenEnd; i++ {
			if toks[i].Kind != token.RETURN {
				continue
			}
			exprStart := skipTriviaFwd(toks, i+1)
			semi := findSemicolon(toks, exprStart, fn.TokenEnd)
			if semi == -1 {
				continue
			}
			exprText := strings.TrimSpace(text(toks, source, exprStart, semi))

			if exprText == "NULL" {
				patches = append(patches, patch.Patch{StartToken: i, EndToken: semi + 1, Text: "return ENOMEM;"})
				continue
			}

			hasInlineAlloc := false
			for _, s := range sites {
				if s.TokenIndex > i && s.TokenIndex < semi {
					hasInlineAlloc = true
					break
				}
			}

			var newText string
			if hasInlineAlloc {
				newText = fmt.Sprintf("{ %s _safe_ret = %s; if (!_safe_ret) return ENOMEM; *out = _safe_ret; return 0; }", pointee, exprText)
			} else {
				newText = fmt.Sprintf("*out = %s; return 0;", exprText)
			}
			patches = append(patches, patch.Patch{StartToken: i, EndToken: semi + 1, Text: newText})
		}
	}

	return patches
}

// endsWithReturn reports whether the last statement of fn's body is a
// return statement. An early return inside a nested block does not count:
// the function can still fall off the end of the body and needs a final
// "return 0;".
func endsWithReturn(toks []token.Token, fn *callgraph.FuncNode) bool {
	last := skipTriviaBwd(toks, fn.TokenEnd-2)
	if last <= fn.BodyStart || toks[last].Kind != token.SEMICOLON {
		return false
	}
	first := skipTriviaFwd(toks, statementStart(toks, last-1))
	return first < last && toks[first].Kind == token.RETURN
}

func findSemicolon(toks []token.Token, from, to int) int {
	for k := from; k < to; k++ {
		if toks[k].Kind == token.SEMICOLON {
			return k
		}
	}
	return -1
}

// statementStart walks backward from fromIdx to the nearest preceding
// statement/block boundary and returns the index just past it (0 if none).
func statementStart(toks []token.Token, fromIdx int) int {
	for k := fromIdx; k >= 0; k-- {
		switch toks[k].Kind {
		case token.SEMICOLON, token.LBRACE, token.RBRACE:
			return k + 1
		}
	}
	return 0
}

// statementEnd scans forward from fromIdx to the next SEMICOLON and
// returns the index just past it.
func statementEnd(toks []token.Token, fromIdx int) int {
	for k := fromIdx; k < len(toks); k++ {
		if toks[k].Kind == token.SEMICOLON {
			return k + 1
		}
	}
	return len(toks)
}

func matchingRParen(toks []token.Token, lparen int) int {
	depth := 0
	for i := lparen; i < len(toks); i++ {
		switch toks[i].Kind {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func argsEmptyBetween(toks []token.Token, lparen, rparen int) bool {
	for i := lparen + 1; i < rparen; i++ {
		if !toks[i].IsTrivia() {
			return false
		}
	}
	return true
}

func text(toks []token.Token, source []byte, start, endExclusive int) string {
	if start >= endExclusive {
		return ""
	}
	return string(source[toks[start].Start:toks[endExclusive-1].End()])
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
