// Package rewrite turns a marked function's signature and body into the
// patch.Patch list that makes it check and propagate allocation failures
// instead of assuming success. It never touches bytes directly — every
// decision comes out as a Patch that internal/patch later merges.
package rewrite

import (
	"strings"

	"ctoint/internal/callgraph"
)

// Transform names which shape of signature change, if any, applies to a
// marked function.
type Transform int

const (
	// NONE is a marked function whose return type needs no change (it
	// already returns int, or some other scalar). Its body is still
	// rewritten for unchecked allocations and marked callees.
	NONE Transform = iota
	// VOID_TO_INT rewrites `void f(args)` into `int f(args)`.
	VOID_TO_INT
	// RET_PTR_TO_ARG rewrites `T *f(args)` into `int f(args, T **out)`.
	RET_PTR_TO_ARG
)

// TransformFor classifies the signature change a marked function needs.
// main is never given a new signature, even when marked.
func TransformFor(fn *callgraph.FuncNode) Transform {
	if fn == nil || !fn.MarkedForRefactor || fn.IsMain {
		return NONE
	}
	if fn.ReturnsPtr {
		return RET_PTR_TO_ARG
	}
	if fn.ReturnsVoid {
		return VOID_TO_INT
	}
	return NONE
}

// CalleeInfo is what the body rewriter needs to know about a marked callee
// to rewrite call sites against its new signature. Only callees whose
// Transform is not NONE belong in the map passed to Body — a marked callee
// whose signature didn't change needs no call-site rewriting.
type CalleeInfo struct {
	Transform Transform
	// OriginalReturnType is the callee's pre-rewrite return type text,
	// with any leading storage-class specifier (static/inline/extern)
	// already removed (e.g. "static char *" -> "char *"), used to declare
	// hoisted temporaries that hold what the callee used to return
	// directly. A temporary has no business inheriting the callee's
	// would-be linkage.
	OriginalReturnType string
}

// CalleeReturnType returns fn's pre-rewrite return type with any leading
// storage-class specifier stripped, for populating CalleeInfo.
func CalleeReturnType(fn *callgraph.FuncNode) string {
	_, rest := splitStorageClass(fn.OriginalReturnType)
	return rest
}

// storageClassWords are the specifiers that stay on the outside of a
// rewritten signature rather than folding into the out-parameter's pointee
// type.
var storageClassWords = map[string]bool{
	"static": true,
	"inline": true,
	"extern": true,
}

// splitStorageClass peels leading storage-class specifiers off a verbatim
// pre-rewrite return-type string, returning them as prefix (to keep before
// the new "int" return type) and the remaining type text — qualifiers like
// const, the base type, and any '*' — as rest, the text pointeeType and the
// out-parameter are built from. A return type with no storage class is
// returned unchanged as rest so callers that never had one see no change
// in formatting.
func splitStorageClass(originalReturnType string) (prefix, rest string) {
	fields := strings.Fields(originalReturnType)
	i := 0
	for i < len(fields) && storageClassWords[fields[i]] {
		i++
	}
	if i == 0 {
		return "", originalReturnType
	}
	return strings.Join(fields[:i], " ") + " ", strings.Join(fields[i:], " ")
}

// pointeeType strips one trailing '*' from a (storage-class-stripped)
// pointer return type, giving the type the new out-parameter points at
// (e.g. "char *" -> "char ").
func pointeeType(returnType string) string {
	idx := strings.LastIndexByte(returnType, '*')
	if idx == -1 {
		return returnType
	}
	return returnType[:idx] + returnType[idx+1:]
}
