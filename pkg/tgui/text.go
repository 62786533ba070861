package tgui

import "github.com/rivo/uniseg"

// Truncate keeps at most n user-perceived characters (grapheme clusters)
// of s, so an emoji sequence is never split. A cut adds "…".
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	g := uniseg.NewGraphemes(s)
	for count := 0; g.Next(); count++ {
		if count == n {
			from, _ := g.Positions()
			return s[:from] + "…"
		}
	}
	return s
}
