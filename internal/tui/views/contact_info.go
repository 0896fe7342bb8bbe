package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/matheus3301/huddle/internal/store"
	"github.com/matheus3301/huddle/internal/tui/ui"
)

// ContactInfo displays a contact's directory entry and chat summary.
type ContactInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewContactInfo creates a new contact info view.
func NewContactInfo(theme *ui.Theme) *ContactInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Contact Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ContactInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements ui.Component.
func (ci *ContactInfo) Name() string { return "Details" }

// Update renders the details. chat may be nil when no message was exchanged.
func (ci *ContactInfo) Update(c store.Contact, chat *store.Chat, userID string, now time.Time) {
	ci.Clear()

	fg := ui.Tag(ci.theme.FgColor)
	ct := ui.Tag(ci.theme.CounterColor)
	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		_, _ = fmt.Fprintf(ci, " [%s::b]%-13s[-:-:-] [%s]%s[-]\n", fg, label+":", ct, display(value))
	}

	_, _ = fmt.Fprintln(ci)
	row("Name", c.Name)
	row("ID", c.ID)
	row("Email", c.Email)
	row("Phone", c.Phone)
	row("Presence", LastSeen(c, now))
	row("Avatar", c.Avatar)

	if chat == nil {
		row("Chat", "no messages yet")
	} else {
		row("Chat", chat.ID)
		row("Unread", fmt.Sprint(chat.UnreadCount))
		row("Last Active", MessageTime(chat.UpdatedAt, now))
		if chat.LastMessage != nil {
			row("Last Message", Preview(chat.LastMessage, userID, 60))
			row("Delivery", string(chat.LastMessage.Status))
		}
	}

	ci.SetTitle(fmt.Sprintf(" %s Details ", tview.Escape(c.Name)))
}
