package token

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// reconstitute concatenates every token's bytes and must reproduce src
// exactly, the cover invariant every tokenizer run has to satisfy.
func reconstitute(src []byte, toks []Token) []byte {
	out := make([]byte, 0, len(src))
	for _, t := range toks {
		out = append(out, src[t.Start:t.End()]...)
	}
	return out
}

func TestTokenize_CoversInputExactly(t *testing.T) {
	cases := []string{
		"",
		"int main(void) { return 0; }",
		"/* unterminated",
		"\"unterminated string",
		"'unterminated char",
		"#define FOO(x) ((x) + 1)\n",
		"#define MULTI(x) \\\n  (x)\n",
		"char *p = malloc(10);\nif (!p) return NULL;\n",
		"0x1A2b 0b101 3.14e-10f 42UL .5",
		"a->b == c != d && e || f++ --g += h -= i *= j",
	}
	for _, src := range cases {
		toks := Tokenize([]byte(src))
		assert.Equal(t, src, string(reconstitute([]byte(src), toks)), "case %q", src)
	}
}

func TestTokenize_KeywordsAndIdentifiers(t *testing.T) {
	src := []byte("struct Foo { int x; }; bar_baz")
	toks := Tokenize(src)

	var kinds []Kind
	for _, tok := range toks {
		if !tok.IsTrivia() {
			kinds = append(kinds, tok.Kind)
		}
	}
	want := []Kind{STRUCT, IDENTIFIER, LBRACE, INT, IDENTIFIER, SEMICOLON, RBRACE, SEMICOLON, IDENTIFIER}
	assert.Equal(t, want, kinds)
}

func TestTokenize_LineCommentExcludesNewline(t *testing.T) {
	src := []byte("// hello\nx")
	toks := Tokenize(src)
	assert.Equal(t, COMMENT, toks[0].Kind)
	assert.Equal(t, "// hello", toks[0].Text(src))
	assert.Equal(t, WHITESPACE, toks[1].Kind)
	assert.Equal(t, "\n", toks[1].Text(src))
}

func TestTokenize_MacroRequiresLineStart(t *testing.T) {
	src := []byte("  #define X 1\nint x = 1 # 2;\n")
	toks := Tokenize(src)
	assert.Equal(t, MACRO, toks[1].Kind) // after the leading whitespace token
	found := false
	for _, tok := range toks {
		if tok.Kind == MACRO && tok.Text(src) != "#define X 1" {
			found = true
		}
	}
	assert.False(t, found, "a '#' mid-statement must not become a MACRO token")
}

func TestTokenize_ArrowAndCompoundOperators(t *testing.T) {
	src := []byte("p->field == 1 && q != 0")
	toks := Tokenize(src)
	var kinds []Kind
	for _, tok := range toks {
		if !tok.IsTrivia() {
			kinds = append(kinds, tok.Kind)
		}
	}
	assert.Equal(t, []Kind{IDENTIFIER, ARROW, IDENTIFIER, EQ, NUMBER_LITERAL, PUNCT, IDENTIFIER, PUNCT, NUMBER_LITERAL}, kinds)
}

func TestTokenize_StringAndCharEscapes(t *testing.T) {
	src := []byte(`"a\"b" 'c' '\''`)
	toks := Tokenize(src)
	assert.Equal(t, STRING_LITERAL, toks[0].Kind)
	assert.Equal(t, `"a\"b"`, toks[0].Text(src))
}

// TestTokenize_RandomSourcesCoverInput fuzzes the cover invariant over
// random sequences drawn from the recognized token vocabulary. The seed is
// fixed so a failure reproduces.
func TestTokenize_RandomSourcesCoverInput(t *testing.T) {
	vocab := []string{
		"int", "char", "void", "struct", "p", "foo_bar", "x1",
		"42", "0x1F", "3.14f", `"str"`, "'c'",
		"{", "}", "(", ")", "[", "]", ";", ",", "=", "==", "->", "*", "&",
		"+", "-", "/", "%", "<<=", "&&", "...",
		" ", "\n", "\t", "/* c */", "// line\n",
	}
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 200; trial++ {
		var b strings.Builder
		n := rng.Intn(60)
		for i := 0; i < n; i++ {
			b.WriteString(vocab[rng.Intn(len(vocab))])
			b.WriteByte(' ')
		}
		src := b.String()
		toks := Tokenize([]byte(src))
		assert.Equal(t, src, string(reconstitute([]byte(src), toks)), "trial %d: %q", trial, src)
	}
}

func TestTokenize_NumberLiterals(t *testing.T) {
	cases := []string{"0x1F", "0b1010", "3.14", "1e10", "1.5e-3f", "42UL", ".5"}
	for _, src := range cases {
		toks := Tokenize([]byte(src))
		assert.Len(t, toks, 1, "case %q", src)
		assert.Equal(t, NUMBER_LITERAL, toks[0].Kind, "case %q", src)
	}
}
