package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/matheus3301/huddle/internal/tui/ui"
)

// EmptyState fills the thread pane while no contact is selected.
type EmptyState struct {
	*tview.TextView
}

// NewEmptyState creates the placeholder pane.
func NewEmptyState(theme *ui.Theme) *EmptyState {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)

	_, _ = fmt.Fprintf(tv,
		"\n\n\n[%s::b]Select a contact to start chatting[-:-:-]\n\n"+
			"Choose a contact from your list to begin a conversation.\n"+
			"Your messages will appear here as they happen.\n\n"+
			"[%s]Enter opens a chat, / searches, : runs a command[-]",
		ui.Tag(theme.TitleColor), ui.Tag(theme.DimColor))

	return &EmptyState{TextView: tv}
}

// Name implements ui.Component.
func (e *EmptyState) Name() string { return "Contacts" }
