package patch

import (
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"ctoint/internal/token"
)

func TestMerge_NoPatchesRoundTrips(t *testing.T) {
	src := []byte("int main(void) { return 0; }")
	toks := token.Tokenize(src)
	out := Merge(toks, src, nil)
	assert.Equal(t, src, out)
}

func TestMerge_InsertionAtToken(t *testing.T) {
	src := []byte("int x;")
	toks := token.Tokenize(src)
	// insert right before the final ';' (token index for ';' — find it)
	semi := -1
	for i, tk := range toks {
		if tk.Kind == token.SEMICOLON {
			semi = i
		}
	}
	out := Merge(toks, src, []Patch{{StartToken: semi, EndToken: semi, Text: " /*ins*/"}})
	assert.Equal(t, "int x /*ins*/;", string(out))
}

func TestMerge_ReplaceRange(t *testing.T) {
	src := []byte("int x = 1;")
	toks := token.Tokenize(src)
	// replace the NUMBER_LITERAL token with "2"
	idx := -1
	for i, tk := range toks {
		if tk.Kind == token.NUMBER_LITERAL {
			idx = i
		}
	}
	out := Merge(toks, src, []Patch{{StartToken: idx, EndToken: idx + 1, Text: "2"}})
	assert.Equal(t, "int x = 2;", string(out))
}

func TestMerge_MultipleInsertionsAtSamePointApplyInOrder(t *testing.T) {
	src := []byte("x;")
	toks := token.Tokenize(src)
	out := Merge(toks, src, []Patch{
		{StartToken: 0, EndToken: 0, Text: "A"},
		{StartToken: 0, EndToken: 0, Text: "B"},
	})
	assert.Equal(t, "ABx;", string(out))
}

func TestMerge_OverlapProtectionDropsSecondPatch(t *testing.T) {
	src := []byte("a b c;")
	toks := token.Tokenize(src)
	// token 0 = "a", token1 = ws, token2 = "b", token3 = ws, token4="c", token5=";"
	out := Merge(toks, src, []Patch{
		{StartToken: 0, EndToken: 4, Text: "REPLACED"},
		{StartToken: 2, EndToken: 3, Text: "SHOULD_BE_DROPPED"},
	})
	assert.Equal(t, "REPLACEDc;", string(out))
}

// TestMerge_EmptyPatchListRoundTripsRandomTokenStreams is the patch-engine
// half of the round-trip property: any token cover merged with no patches
// must reproduce its source exactly. A few hand-written sources are joined
// by random sequences drawn from a token vocabulary; the seed is fixed so a
// failure reproduces.
func TestMerge_EmptyPatchListRoundTripsRandomTokenStreams(t *testing.T) {
	sources := []string{
		"struct s { int a; };\nint f(void) { return 0; }\n",
		"#define N 4\nchar *p = \"x\"; /* c */ // d\n",
		"a->b == c; x <<= 2; y = z[0] ? 1 : 2;",
	}
	vocab := []string{
		"int", "void", "p", "42", "0x1F", `"s"`, "'c'", "{", "}", "(", ")",
		";", ",", "=", "==", "->", "*", "<<=", " ", "\n", "/* c */", "// l\n",
	}
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 100; trial++ {
		var b strings.Builder
		for i, n := 0, rng.Intn(40); i < n; i++ {
			b.WriteString(vocab[rng.Intn(len(vocab))])
			b.WriteByte(' ')
		}
		sources = append(sources, b.String())
	}
	for _, src := range sources {
		toks := token.Tokenize([]byte(src))
		out := Merge(toks, []byte(src), nil)
		assert.Equal(t, src, string(out))
	}
}

// TestMerge_OutputLengthInvariant checks the length identity: output bytes
// equal the sum of every non-replaced token's bytes plus every applied
// patch's text bytes.
func TestMerge_OutputLengthInvariant(t *testing.T) {
	src := []byte("int x = 1; int y = 2;")
	toks := token.Tokenize(src)
	patches := []Patch{
		{StartToken: 0, EndToken: 0, Text: "/* pre */ "},
		{StartToken: 6, EndToken: 7, Text: "42"},
	}

	out := Merge(toks, src, patches)

	replaced := map[int]bool{}
	textLen := 0
	for _, p := range patches {
		textLen += len(p.Text)
		for i := p.StartToken; i < p.EndToken; i++ {
			replaced[i] = true
		}
	}
	tokenLen := 0
	for i, tk := range toks {
		if !replaced[i] {
			tokenLen += tk.Length
		}
	}
	assert.Equal(t, tokenLen+textLen, len(out))
}

// TestMerge_StableSortPreservesGivenOrderAtSharedStart pins down the
// pre-merge sort itself: patches sharing a StartToken must stay in the
// order they were given (stable sort), which a non-stable or
// differently-keyed sort could silently violate while still passing a
// merged-output-only check.
func TestMerge_StableSortPreservesGivenOrderAtSharedStart(t *testing.T) {
	given := []Patch{
		{StartToken: 3, EndToken: 3, Text: "third"},
		{StartToken: 0, EndToken: 0, Text: "first-A"},
		{StartToken: 0, EndToken: 0, Text: "first-B"},
		{StartToken: 1, EndToken: 1, Text: "second"},
	}
	sorted := make([]Patch, len(given))
	copy(sorted, given)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartToken < sorted[j].StartToken })

	want := []Patch{
		{StartToken: 0, EndToken: 0, Text: "first-A"},
		{StartToken: 0, EndToken: 0, Text: "first-B"},
		{StartToken: 1, EndToken: 1, Text: "second"},
		{StartToken: 3, EndToken: 3, Text: "third"},
	}
	if diff := cmp.Diff(want, sorted); diff != "" {
		t.Errorf("stable sort order mismatch (-want +got):\n%s", diff)
	}
}
