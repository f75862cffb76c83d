// Package patch merges an ordered set of non-overlapping token-range edits
// back into the original token stream, producing final output bytes. It
// never mutates tokens or patch text; its output is purely a concatenation
// of original source slices and patch texts.
package patch

import (
	"sort"

	"ctoint/internal/token"
)

// Patch describes one edit: replace tokens [StartToken, EndToken) with
// Text, or — when StartToken == EndToken — insert Text at that token
// index without consuming any token.
type Patch struct {
	StartToken int
	EndToken   int
	Text       string
}

// Merge sorts patches ascending by StartToken (stable, so patches sharing a
// start token apply in the order they were given) and walks toks left to
// right, emitting either the next due patch's text or the current token's
// bytes.
func Merge(toks []token.Token, source []byte, patches []Patch) []byte {
	sorted := make([]Patch, len(patches))
	copy(sorted, patches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartToken < sorted[j].StartToken
	})

	var out []byte
	cursor := 0
	pi := 0
	n := len(toks)

	for cursor < n {
		if pi < len(sorted) && sorted[pi].StartToken == cursor {
			p := sorted[pi]
			out = append(out, p.Text...)
			pi++
			cursor = p.EndToken
			for pi < len(sorted) && sorted[pi].StartToken < cursor {
				pi++ // overlap protection
			}
			continue
		}
		out = append(out, source[toks[cursor].Start:toks[cursor].End()]...)
		cursor++
	}

	for ; pi < len(sorted); pi++ {
		out = append(out, sorted[pi].Text...)
	}

	return out
}
