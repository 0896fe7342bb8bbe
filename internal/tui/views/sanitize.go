package views

import (
	"strings"
	"unicode"

	"github.com/rivo/tview"
)

// zeroWidth lists code points that tcell renders as stray cells: skin tone
// modifiers, the zero width joiner and the variation selectors.
var zeroWidth = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200D, Hi: 0x200D, Stride: 1},
		{Lo: 0xFE00, Hi: 0xFE0F, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F3FB, Hi: 0x1F3FF, Stride: 1},
		{Lo: 0xE0100, Hi: 0xE01EF, Stride: 1},
	},
}

// display prepares user-provided text for a dynamic-color view: it drops
// code points tcell cannot lay out and escapes color tags.
func display(s string) string {
	return tview.Escape(strings.Map(func(r rune) rune {
		if unicode.Is(zeroWidth, r) {
			return -1
		}
		return r
	}, s))
}
