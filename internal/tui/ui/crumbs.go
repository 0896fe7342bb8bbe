package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Crumbs is a breadcrumb bar showing the current navigation path.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates a new breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &Crumbs{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the trail; the last entry is highlighted.
func (c *Crumbs) Update(trail []string) {
	c.Clear()
	if len(trail) == 0 {
		return
	}

	parts := make([]string, 0, len(trail))
	for i, name := range trail {
		fg, bg, attr := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		if i == len(trail)-1 {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:%s] %s [-:-:-]",
			colorName(fg), colorName(bg), attr, tview.Escape(name)))
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " > "))
}

// colorName returns a tview-compatible color name string.
func colorName(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
