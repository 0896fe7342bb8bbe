package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/matheus3301/huddle/internal/tui/ui"
)

// HelpSection is one titled group of bindings.
type HelpSection struct {
	Title string
	Hints []ui.MenuHint
}

// HelpView displays the key binding and command reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	return &HelpView{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return "Help" }

// Update renders sections as aligned key/description columns.
func (hv *HelpView) Update(sections []HelpSection) {
	hv.Clear()

	width := 0
	for _, s := range sections {
		for _, h := range s.Hints {
			width = max(width, len(h.Key))
		}
	}

	kc := ui.Tag(hv.theme.MenuKeyColor)
	var sb strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&sb, "\n  [::b]%s[-:-:-]\n\n", s.Title)
		for _, h := range s.Hints {
			pad := strings.Repeat(" ", width-len(h.Key))
			fmt.Fprintf(&sb, "  [%s]%s[-]%s  %s\n", kc, tview.Escape(h.Key), pad, h.Description)
		}
	}
	_, _ = fmt.Fprint(hv, sb.String())
	hv.ScrollToBeginning()
}
