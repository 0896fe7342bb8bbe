package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// UserData holds the header's session summary.
type UserData struct {
	Profile  string
	Name     string
	Email    string
	Status   string
	Contacts int
	Chats    int
	Unread   int
	Uptime   time.Duration
}

// UserInfo displays the signed-in user and counters in the header.
type UserInfo struct {
	*tview.TextView
	theme *Theme
}

// NewUserInfo creates a new user info panel.
func NewUserInfo(theme *Theme) *UserInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &UserInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the user info.
func (u *UserInfo) Update(data UserData) {
	u.Clear()

	fg := colorName(u.theme.FgColor)
	ct := colorName(u.theme.CounterColor)

	name, email := orDash(data.Name), orDash(data.Email)
	unread := fmt.Sprintf("[%s]%d[-]", ct, data.Unread)
	if data.Unread > 0 {
		unread = fmt.Sprintf("[%s::b]%d[-:-:-]", colorName(u.theme.UnreadColor), data.Unread)
	}

	_, _ = fmt.Fprintf(u,
		"[%s::b]Profile:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]User:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Email:[-:-:-]   [%s]%s[-]\n"+
			"[%s::b]Status:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]Chats:[-:-:-]   [%s]%d[-] of [%s]%d[-] contacts, %s unread\n"+
			"[%s::b]Uptime:[-:-:-]  [%s]%s[-]",
		fg, ct, tview.Escape(data.Profile),
		fg, ct, tview.Escape(name),
		fg, ct, tview.Escape(email),
		fg, ct, data.Status,
		fg, ct, data.Chats, ct, data.Contacts, unread,
		fg, ct, formatDuration(data.Uptime),
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
