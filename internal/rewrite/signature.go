package rewrite

import (
	"ctoint/internal/callgraph"
	"ctoint/internal/patch"
	"ctoint/internal/token"
)

// Signature emits the patches that rewrite fn's signature for transform.
// Only the two mutation points are touched: the return-type span (everything
// before the function name) and, for RET_PTR_TO_ARG, the tail of the
// parameter list. Whitespace and comments elsewhere in the signature pass
// through verbatim. NONE yields no patch.
func Signature(toks []token.Token, source []byte, fn *callgraph.FuncNode, transform Transform) []patch.Patch {
	if transform == NONE {
		return nil
	}

	nameIdx := skipTriviaBwd(toks, fn.ParamsStart-1)
	if nameIdx < fn.TokenStart {
		return nil
	}

	// storagePrefix (static/inline/extern) stays outside the new "int"
	// return type instead of folding into the out-parameter's pointee type.
	storagePrefix, rest := splitStorageClass(fn.OriginalReturnType)

	patches := []patch.Patch{
		{StartToken: fn.TokenStart, EndToken: nameIdx, Text: storagePrefix + "int "},
	}

	if transform == RET_PTR_TO_ARG {
		outParam := pointeeType(rest) + "**out"
		if isVoidOnlyParams(toks, fn.ParamsStart, fn.ParamsEnd) {
			// `(void)` would make the out-parameter a second argument of a
			// zero-arg form; replace the whole inside of the parens.
			patches = append(patches, patch.Patch{
				StartToken: fn.ParamsStart + 1,
				EndToken:   fn.ParamsEnd - 1,
				Text:       outParam,
			})
		} else if argsEmptyBetween(toks, fn.ParamsStart, fn.ParamsEnd-1) {
			patches = append(patches, patch.Patch{
				StartToken: fn.ParamsEnd - 1,
				EndToken:   fn.ParamsEnd - 1,
				Text:       outParam,
			})
		} else {
			patches = append(patches, patch.Patch{
				StartToken: fn.ParamsEnd - 1,
				EndToken:   fn.ParamsEnd - 1,
				Text:       ", " + outParam,
			})
		}
	}

	return patches
}

// isVoidOnlyParams reports whether the parameter list between paramsStart
// (the '(') and paramsEnd (one past the ')') spells exactly "(void)".
func isVoidOnlyParams(toks []token.Token, paramsStart, paramsEnd int) bool {
	var significant []int
	for i := paramsStart + 1; i < paramsEnd-1; i++ {
		if !toks[i].IsTrivia() {
			significant = append(significant, i)
		}
	}
	if len(significant) != 1 {
		return false
	}
	return toks[significant[0]].Kind == token.VOID
}
