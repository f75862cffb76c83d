package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ctoint/internal/token"
)

func analyzeSrc(src string) ([]token.Token, []Site) {
	toks := token.Tokenize([]byte(src))
	return toks, Analyze(toks, []byte(src), DefaultAllocators)
}

func TestAnalyze_UncheckedMallocAssignment(t *testing.T) {
	_, sites := analyzeSrc(`void f() { char *p = malloc(10); *p = 5; }`)
	assert.Len(t, sites, 1)
	assert.Equal(t, "p", sites[0].VarName)
	assert.False(t, sites[0].IsChecked)
	assert.True(t, sites[0].UsedBeforeCheck)
}

func TestAnalyze_CheckedMallocAssignment(t *testing.T) {
	_, sites := analyzeSrc(`void f() { char *p = malloc(10); if (!p) return; }`)
	assert.Len(t, sites, 1)
	assert.Equal(t, "p", sites[0].VarName)
	assert.True(t, sites[0].IsChecked)
	assert.False(t, sites[0].UsedBeforeCheck)
}

func TestAnalyze_CallInsideCondition(t *testing.T) {
	_, sites := analyzeSrc(`void f() { char *p; if ((p = malloc(10)) == 0) return; }`)
	assert.Len(t, sites, 1)
	assert.True(t, sites[0].IsChecked)
}

func TestAnalyze_ReturnStatement(t *testing.T) {
	_, sites := analyzeSrc(`char *f() { return malloc(10); }`)
	assert.Len(t, sites, 1)
	assert.True(t, sites[0].IsReturnStmt)
	assert.False(t, sites[0].HasVar)
}

func TestAnalyze_AsprintfNegativeCheck(t *testing.T) {
	_, sites := analyzeSrc(`void f() { char *s; int n = asprintf(&s, "x"); if (n < 0) return; }`)
	assert.Len(t, sites, 1)
	assert.Equal(t, CheckIntNegative, sites[0].Spec.CheckStyle)
	assert.Equal(t, OutParamPointer, sites[0].Spec.ResultShape)
}

func TestAnalyze_NoAssignmentNoVar(t *testing.T) {
	_, sites := analyzeSrc(`void f() { log_alloc(); malloc(10); g(); }`)
	assert.Len(t, sites, 1)
	assert.False(t, sites[0].HasVar)
}

func TestAnalyze_ChainedAssignmentTakesNearestVar(t *testing.T) {
	_, sites := analyzeSrc(`void f() { char *a; char *b; a = b = malloc(10); }`)
	assert.Len(t, sites, 1)
	assert.Equal(t, "b", sites[0].VarName)
}

func TestAnalyze_CheckThroughHelperCallInWhileCondition(t *testing.T) {
	_, sites := analyzeSrc(`void f() { char *p = malloc(10); while (ok(p)) { use(p); } }`)
	assert.Len(t, sites, 1)
	assert.True(t, sites[0].IsChecked)
}

func TestAnalyze_NotACallIsIgnored(t *testing.T) {
	_, sites := analyzeSrc(`void f() { void *malloc; }`)
	assert.Len(t, sites, 0)
}
