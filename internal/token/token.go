// Package token defines the byte-level token model shared by every later
// stage of the refactoring pipeline. Tokens never own text: each carries a
// byte span back into the original source buffer.
package token

// Kind classifies a token. The set is closed; new spellings fall back to
// IDENTIFIER rather than growing this list, per the tokenizer's "operate on
// tokens, not a semantic AST" mandate.
type Kind int

const (
	ILLEGAL Kind = iota

	// Structural.
	LBRACE
	RBRACE
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	SEMICOLON
	COMMA
	COLON
	QUESTION
	HASH

	// Operators distinguished because the rewriter inspects them directly.
	ASSIGN
	EQ
	ARROW
	STAR
	AMP
	PLUS
	MINUS
	SLASH
	PERCENT

	// PUNCT covers every other punctuation/operator spelling (!=, <=, >=,
	// &&, ||, ++, --, +=, -=, *=, /=, %=, &=, |=, ^=, <<, >>, <<=, >>=, !,
	// ~, ^, |, <, >, ., ...) that no phase needs to distinguish further.
	PUNCT

	// Literal/lexical.
	IDENTIFIER
	NUMBER_LITERAL
	CHAR_LITERAL
	STRING_LITERAL
	COMMENT
	MACRO
	WHITESPACE

	// Keyword variants the analyzer must recognize by spelling.
	STRUCT
	UNION
	ENUM
	STATIC
	INLINE
	EXTERN
	CONST
	VOLATILE
	AUTO
	REGISTER
	IF
	WHILE
	FOR
	SWITCH
	RETURN
	STATIC_ASSERT
	VOID
	CHAR
	INT
	SHORT
	LONG
	FLOAT
	DOUBLE
	SIGNED
	UNSIGNED
	BOOL
)

var kindNames = map[Kind]string{
	ILLEGAL:        "ILLEGAL",
	LBRACE:         "LBRACE",
	RBRACE:         "RBRACE",
	LPAREN:         "LPAREN",
	RPAREN:         "RPAREN",
	LBRACKET:       "LBRACKET",
	RBRACKET:       "RBRACKET",
	SEMICOLON:      "SEMICOLON",
	COMMA:          "COMMA",
	COLON:          "COLON",
	QUESTION:       "QUESTION",
	HASH:           "HASH",
	ASSIGN:         "ASSIGN",
	EQ:             "EQ",
	ARROW:          "ARROW",
	STAR:           "STAR",
	AMP:            "AMP",
	PLUS:           "PLUS",
	MINUS:          "MINUS",
	SLASH:          "SLASH",
	PERCENT:        "PERCENT",
	PUNCT:          "PUNCT",
	IDENTIFIER:     "IDENTIFIER",
	NUMBER_LITERAL: "NUMBER_LITERAL",
	CHAR_LITERAL:   "CHAR_LITERAL",
	STRING_LITERAL: "STRING_LITERAL",
	COMMENT:        "COMMENT",
	MACRO:          "MACRO",
	WHITESPACE:     "WHITESPACE",
	STRUCT:         "STRUCT",
	UNION:          "UNION",
	ENUM:           "ENUM",
	STATIC:         "STATIC",
	INLINE:         "INLINE",
	EXTERN:         "EXTERN",
	CONST:          "CONST",
	VOLATILE:       "VOLATILE",
	AUTO:           "AUTO",
	REGISTER:       "REGISTER",
	IF:             "IF",
	WHILE:          "WHILE",
	FOR:            "FOR",
	SWITCH:         "SWITCH",
	RETURN:         "RETURN",
	STATIC_ASSERT:  "STATIC_ASSERT",
	VOID:           "VOID",
	CHAR:           "CHAR",
	INT:            "INT",
	SHORT:          "SHORT",
	LONG:           "LONG",
	FLOAT:          "FLOAT",
	DOUBLE:         "DOUBLE",
	SIGNED:         "SIGNED",
	UNSIGNED:       "UNSIGNED",
	BOOL:           "BOOL",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// keywords maps the exact spelling the tokenizer must recognize to its Kind.
// Any identifier-shaped word not in this table stays IDENTIFIER.
var keywords = map[string]Kind{
	"struct":          STRUCT,
	"union":           UNION,
	"enum":            ENUM,
	"static":          STATIC,
	"inline":          INLINE,
	"extern":          EXTERN,
	"const":           CONST,
	"volatile":        VOLATILE,
	"auto":            AUTO,
	"register":        REGISTER,
	"if":              IF,
	"while":           WHILE,
	"for":             FOR,
	"switch":          SWITCH,
	"return":          RETURN,
	"_Static_assert":  STATIC_ASSERT,
	"void":            VOID,
	"char":            CHAR,
	"int":             INT,
	"short":           SHORT,
	"long":            LONG,
	"float":           FLOAT,
	"double":          DOUBLE,
	"signed":          SIGNED,
	"unsigned":        UNSIGNED,
	"bool":            BOOL,
	"_Bool":           BOOL,
}

// LookupKeyword returns the keyword Kind for word, and ok=false if word is
// not a recognized keyword spelling (in which case it is an IDENTIFIER).
func LookupKeyword(word string) (Kind, bool) {
	k, ok := keywords[word]
	return k, ok
}

// IsTypeStart reports whether k can open a type in a declaration or
// function-definition heuristic (a type keyword, struct/enum/union, or an
// identifier standing in for a typedef name).
func IsTypeStart(k Kind) bool {
	switch k {
	case STRUCT, UNION, ENUM, STATIC, INLINE, EXTERN, CONST, VOLATILE,
		VOID, CHAR, INT, SHORT, LONG, FLOAT, DOUBLE, SIGNED, UNSIGNED, BOOL,
		IDENTIFIER:
		return true
	default:
		return false
	}
}

// Token is a tagged byte span into the original source. Tokens partition
// the source exactly: concatenating source[Start:Start+Length] for every
// token in order reproduces the input byte-for-byte.
type Token struct {
	Kind   Kind
	Start  int
	Length int
}

// End returns the byte offset one past the token's last byte.
func (t Token) End() int { return t.Start + t.Length }

// Text returns the token's verbatim bytes from source.
func (t Token) Text(source []byte) string {
	return string(source[t.Start:t.End()])
}

// IsTrivia reports whether a token is whitespace or a comment — the two
// kinds every later phase may need to skip over without altering the byte
// stream.
func (t Token) IsTrivia() bool {
	return t.Kind == WHITESPACE || t.Kind == COMMENT
}
