package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
)

// MenuRows is how many hints fit in one column of the header.
const MenuRows = 5

// Menu shows the key hints of the active view, laid out in columns of
// MenuRows so the header keeps a fixed height.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates an empty hint menu.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 0)
	return &Menu{TextView: tv, theme: theme}
}

// Update renders hints column by column.
func (m *Menu) Update(hints []MenuHint) {
	m.SetText(m.render(hints))
}

func (m *Menu) render(hints []MenuHint) string {
	cols := (len(hints) + MenuRows - 1) / MenuRows
	widths := make([]int, cols)
	for i, h := range hints {
		if w := runewidth.StringWidth(cell(h)); w > widths[i/MenuRows] {
			widths[i/MenuRows] = w
		}
	}

	keyColor := colorName(m.theme.MenuKeyColor)
	var b strings.Builder
	for row := 0; row < MenuRows && row < len(hints); row++ {
		for col := 0; col < cols; col++ {
			i := col*MenuRows + row
			if i >= len(hints) {
				break
			}
			h := hints[i]
			fmt.Fprintf(&b, "[%s::b]<%s>[-:-:-] %s", keyColor, tview.Escape(h.Key), tview.Escape(h.Description))
			if col < cols-1 && i+MenuRows < len(hints) {
				b.WriteString(strings.Repeat(" ", widths[col]-runewidth.StringWidth(cell(h))+2))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// cell is the visible text of one hint.
func cell(h MenuHint) string {
	return "<" + h.Key + "> " + h.Description
}
