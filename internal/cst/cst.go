// Package cst segments a token stream into a sequence of top-level spans —
// function definitions, struct/enum/union blocks, macros, comments, and a
// catch-all for everything else — without building a semantic AST. Node
// boundaries always align to token boundaries and partition the stream
// exactly, interstitial whitespace included.
package cst

import "ctoint/internal/token"

// Kind classifies a CstNode.
type Kind int

const (
	OTHER Kind = iota
	FUNCTION
	STRUCT
	ENUM
	UNION
	COMMENT
	MACRO
	ATTRIBUTE
	STATIC_ASSERT
	GENERIC_SELECTION
)

// Node is a byte- and token-aligned span of one grouped construct.
type Node struct {
	Kind       Kind
	ByteStart  int
	ByteLength int
	TokenStart int
	TokenEnd   int // one past the node's last token
}

// Group walks toks at top level and returns the sequence of nodes that
// covers them exactly; a later node's TokenStart always equals the
// previous node's TokenEnd.
func Group(toks []token.Token) []Node {
	return groupRange(toks, 0, len(toks))
}

func groupRange(toks []token.Token, start, end int) []Node {
	var nodes []Node
	i := start
	for i < end {
		node, next := groupOne(toks, i, end)
		nodes = append(nodes, node)
		i = next
	}
	return nodes
}

// groupOne classifies and consumes exactly one node starting at i (which
// may be whitespace; leading whitespace belongs to the node it precedes).
// A comment is a node of its own, not leading trivia of the next node.
func groupOne(toks []token.Token, i, end int) (Node, int) {
	j := i
	for j < end && toks[j].Kind == token.WHITESPACE {
		j++
	}
	if j >= end {
		return nodeFromRange(toks, OTHER, i, end), end
	}

	switch toks[j].Kind {
	case token.COMMENT:
		return nodeFromRange(toks, COMMENT, i, j+1), j + 1
	case token.MACRO:
		return nodeFromRange(toks, MACRO, i, j+1), j + 1
	case token.LBRACKET:
		if k, ok := tryAttribute(toks, j, end); ok {
			return nodeFromRange(toks, ATTRIBUTE, i, k), k
		}
	case token.STATIC_ASSERT:
		if k, ok := tryStaticAssert(toks, j, end); ok {
			return nodeFromRange(toks, STATIC_ASSERT, i, k), k
		}
	case token.STRUCT, token.UNION, token.ENUM:
		if kind, k, ok := tryStructLike(toks, j, end); ok {
			return nodeFromRange(toks, kind, i, k), k
		}
	}

	if token.IsTypeStart(toks[j].Kind) {
		if k, ok := tryFunctionDef(toks, j, end); ok {
			return nodeFromRange(toks, FUNCTION, i, k), k
		}
	}

	k := scanOther(toks, j, end)
	return nodeFromRange(toks, OTHER, i, k), k
}

func nodeFromRange(toks []token.Token, kind Kind, start, end int) Node {
	byteStart := toks[start].Start
	byteEnd := toks[end-1].End()
	return Node{
		Kind:       kind,
		ByteStart:  byteStart,
		ByteLength: byteEnd - byteStart,
		TokenStart: start,
		TokenEnd:   end,
	}
}

func skipTrivia(toks []token.Token, i, end int) int {
	for i < end && toks[i].IsTrivia() {
		i++
	}
	return i
}

// lastSignificant returns the index of the last non-trivia token strictly
// before i, or -1 if none exists.
func lastSignificant(toks []token.Token, i int) int {
	for k := i - 1; k >= 0; k-- {
		if !toks[k].IsTrivia() {
			return k
		}
	}
	return -1
}

// skipBalanced consumes a bracketed region starting at an opening token of
// kind open (toks[i].Kind == open) through its matching close, returning the
// index one past the close. Nested same-kind pairs are tracked; mismatched
// bracket kinds inside are ignored (the grouper is heuristic, not a parser).
func skipBalanced(toks []token.Token, i, end int, open, close token.Kind) int {
	depth := 0
	for i < end {
		switch toks[i].Kind {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
		i++
	}
	return end
}

func tryAttribute(toks []token.Token, j, end int) (int, bool) {
	k := skipTrivia(toks, j+1, end)
	if k >= end || toks[k].Kind != token.LBRACKET {
		return 0, false
	}
	depth := 0
	i := j
	for i < end {
		switch toks[i].Kind {
		case token.LBRACKET:
			depth++
		case token.RBRACKET:
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
		i++
	}
	return 0, false
}

func tryStaticAssert(toks []token.Token, j, end int) (int, bool) {
	k := skipTrivia(toks, j+1, end)
	if k >= end || toks[k].Kind != token.LPAREN {
		return 0, false
	}
	k = skipBalanced(toks, k, end, token.LPAREN, token.RPAREN)
	k = skipTrivia(toks, k, end)
	if k >= end || toks[k].Kind != token.SEMICOLON {
		return 0, false
	}
	return k + 1, true
}

// tryStructLike handles `struct|union|enum [tag] { members } [;]` and the
// forward-declaration form `struct|union|enum tag;`.
func tryStructLike(toks []token.Token, j, end int) (Kind, int, bool) {
	var kind Kind
	switch toks[j].Kind {
	case token.STRUCT:
		kind = STRUCT
	case token.UNION:
		kind = UNION
	case token.ENUM:
		kind = ENUM
	default:
		return 0, 0, false
	}

	k := skipTrivia(toks, j+1, end)
	if k < end && toks[k].Kind == token.IDENTIFIER {
		k = skipTrivia(toks, k+1, end)
	}

	if k < end && toks[k].Kind == token.SEMICOLON {
		return kind, k + 1, true
	}

	if k >= end || toks[k].Kind != token.LBRACE {
		return 0, 0, false
	}

	bodyEnd := skipBalanced(toks, k, end, token.LBRACE, token.RBRACE)
	if bodyEnd == end && toks[bodyEnd-1].Kind != token.RBRACE {
		return 0, 0, false // unterminated; let it fall through to OTHER
	}

	m := skipTrivia(toks, bodyEnd, end)
	if m < end && toks[m].Kind == token.SEMICOLON {
		return kind, m + 1, true
	}
	return kind, bodyEnd, true
}

// Members returns the nested member nodes of a STRUCT/UNION/ENUM node:
// everything between its opening and closing brace, grouped the same way
// as the top level, except that whitespace after the last member belongs
// to that member rather than forming a node of its own.
func Members(toks []token.Token, n Node) []Node {
	// Find the node's brace pair within [TokenStart, TokenEnd).
	open := -1
	for i := n.TokenStart; i < n.TokenEnd; i++ {
		if toks[i].Kind == token.LBRACE {
			open = i
			break
		}
	}
	if open == -1 {
		return nil
	}
	close := skipBalanced(toks, open, n.TokenEnd, token.LBRACE, token.RBRACE) - 1
	if close <= open+1 {
		return nil
	}
	members := groupRange(toks, open+1, close)
	if k := len(members); k > 1 {
		last := members[k-1]
		allSpace := true
		for i := last.TokenStart; i < last.TokenEnd; i++ {
			allSpace = allSpace && toks[i].Kind == token.WHITESPACE
		}
		if allSpace {
			members[k-2].TokenEnd = last.TokenEnd
			members[k-2].ByteLength = last.ByteStart + last.ByteLength - members[k-2].ByteStart
			members = members[:k-1]
		}
	}
	return members
}

// tryFunctionDef implements the function-definition heuristic: from a
// type-start token, skip '*' and identifiers (and further type keywords)
// until an LPAREN, require a balanced parameter list, then a balanced
// `{...}` body. Any SEMICOLON, assignment, arithmetic operator, or literal
// before the parameter LPAREN fails the heuristic.
func tryFunctionDef(toks []token.Token, j, end int) (int, bool) {
	i := j
	for i < end {
		k := skipTrivia(toks, i, end)
		if k >= end {
			return 0, false
		}
		switch toks[k].Kind {
		case token.LPAREN:
			return finishFunctionDef(toks, k, end)
		case token.STAR, token.IDENTIFIER:
			i = k + 1
			continue
		default:
			if token.IsTypeStart(toks[k].Kind) {
				i = k + 1
				continue
			}
			return 0, false
		}
	}
	return 0, false
}

func finishFunctionDef(toks []token.Token, lparen, end int) (int, bool) {
	paramsEnd := skipBalanced(toks, lparen, end, token.LPAREN, token.RPAREN)
	if paramsEnd == end && toks[end-1].Kind != token.RPAREN {
		return 0, false
	}
	k := skipTrivia(toks, paramsEnd, end)
	if k >= end || toks[k].Kind != token.LBRACE {
		return 0, false
	}
	bodyEnd := skipBalanced(toks, k, end, token.LBRACE, token.RBRACE)
	if bodyEnd == end && toks[bodyEnd-1].Kind != token.RBRACE {
		return 0, false
	}
	return bodyEnd, true
}

// scanOther consumes a single OTHER node from j: to the inclusive
// terminating SEMICOLON, or — when the very first significant token is
// itself an LBRACE — the whole balanced block. An LBRACE encountered
// mid-scan is an initializer/compound-literal brace when immediately
// preceded by '=', ',', return, '[', ':', or ')' (cast), and is consumed
// with its match; otherwise it starts a new node and this one ends here.
func scanOther(toks []token.Token, j, end int) int {
	if toks[j].Kind == token.LBRACE {
		return skipBalanced(toks, j, end, token.LBRACE, token.RBRACE)
	}

	i := j
	for i < end {
		switch toks[i].Kind {
		case token.SEMICOLON:
			return i + 1
		case token.LPAREN:
			i = skipBalanced(toks, i, end, token.LPAREN, token.RPAREN)
			continue
		case token.LBRACKET:
			i = skipBalanced(toks, i, end, token.LBRACKET, token.RBRACKET)
			continue
		case token.LBRACE:
			if isInitializerBrace(toks, i) {
				i = skipBalanced(toks, i, end, token.LBRACE, token.RBRACE)
				continue
			}
			return i // statement-block brace: stop, don't consume it
		}
		i++
	}
	return end
}

func isInitializerBrace(toks []token.Token, i int) bool {
	prev := lastSignificant(toks, i)
	if prev < 0 {
		return false
	}
	switch toks[prev].Kind {
	case token.ASSIGN, token.COMMA, token.RETURN, token.LBRACKET, token.COLON, token.RPAREN:
		return true
	default:
		return false
	}
}
