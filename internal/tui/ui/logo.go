package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Logo displays a compact ASCII art logo.
type Logo struct {
	*tview.TextView
	theme *Theme
}

// NewLogo creates a new logo component.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 1, 0)

	l := &Logo{
		TextView: tv,
		theme:    theme,
	}
	_, _ = fmt.Fprint(l, Banner(theme))
	return l
}

// LogoWidth is the column count the header reserves for the logo.
const LogoWidth = 24

// Banner returns the colored logo text, shared with the sign-in screen.
func Banner(theme *Theme) string {
	titleColor := colorName(theme.TitleColor)
	fgColor := colorName(theme.FgColor)

	return fmt.Sprintf(
		"[%s::b]╦ ╦╦ ╦╔╦╗╔╦╗╦  ╔═╗[-:-:-]\n"+
			"[%s::b]╠═╣║ ║ ║║ ║║║  ║╣ [-:-:-]\n"+
			"[%s::b]╩ ╩╚═╝═╩╝═╩╝╩═╝╚═╝[-:-:-]\n"+
			"[%s]local messaging[-:-:-]",
		titleColor, titleColor, titleColor, fgColor,
	)
}
