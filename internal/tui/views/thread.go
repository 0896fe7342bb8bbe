package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"

	"github.com/matheus3301/huddle/internal/store"
	"github.com/matheus3301/huddle/internal/tui/ui"
)

// Thread displays one contact's messages above a composer.
type Thread struct {
	*tview.Flex
	theme    *ui.Theme
	header   *tview.TextView
	messages *tview.TextView
	composer *Composer
	contact  store.Contact
}

// NewThread creates a new thread view.
func NewThread(theme *ui.Theme) *Thread {
	header := tview.NewTextView().
		SetDynamicColors(true)
	header.SetBackgroundColor(theme.BgColor)
	header.SetBorderPadding(0, 0, 1, 1)

	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := NewComposer(theme)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 2, 0, false).
		AddItem(messages, 0, 1, false).
		AddItem(composer.InputField, 3, 0, true)

	return &Thread{
		Flex:     flex,
		theme:    theme,
		header:   header,
		messages: messages,
		composer: composer,
	}
}

// Name implements ui.Component.
func (t *Thread) Name() string {
	if t.contact.Name != "" {
		return t.contact.Name
	}
	return "Thread"
}

// SetOnSend sets the composer callback.
func (t *Thread) SetOnSend(fn func(text string) error) {
	t.composer.SetOnSend(fn)
}

// ContactID returns the contact currently shown.
func (t *Thread) ContactID() string {
	return t.contact.ID
}

// Update renders the contact header and messages, oldest first.
func (t *Thread) Update(c store.Contact, msgs []store.Message, userID string, now time.Time) {
	if c.ID != t.contact.ID {
		t.composer.SetText("")
	}
	t.contact = c
	t.messages.SetTitle(fmt.Sprintf(" %s ", display(c.Name)))

	t.header.Clear()
	presence := ui.Tag(t.theme.DimColor)
	if c.IsOnline {
		presence = ui.Tag(t.theme.OnlineColor)
	}
	_, _ = fmt.Fprintf(t.header, "[%s::b]%s[-:-:-]\n[%s]%s[-]",
		ui.Tag(t.theme.TitleColor), display(c.Name), presence, LastSeen(c, now))

	t.messages.Clear()
	if len(msgs) == 0 {
		t.messages.SetTextAlign(tview.AlignCenter)
		_, _ = fmt.Fprintf(t.messages, "\n\nStart a conversation with %s\n[%s]Send your first message below[-]",
			display(c.Name), ui.Tag(t.theme.DimColor))
		return
	}
	t.messages.SetTextAlign(tview.AlignLeft)
	_, _ = fmt.Fprint(t.messages, t.render(msgs, userID, now))
	t.messages.ScrollToEnd()
}

func (t *Thread) render(msgs []store.Message, userID string, now time.Time) string {
	dim := ui.Tag(t.theme.DimColor)
	var sb strings.Builder
	for i, m := range msgs {
		if NeedsSeparator(msgs, i) {
			fmt.Fprintf(&sb, "[%s]──── %s ────[-]\n\n", dim, MessageTime(m.Timestamp, now))
		}

		sender, color := display(t.contact.Name), t.theme.PeerMessageColor
		var glyph string
		if m.SenderID == userID {
			sender, color = "You", t.theme.OwnMessageColor
			glyph = t.glyph(m.Status)
		}
		fmt.Fprintf(&sb, "[%s::b]%s[-:-:-] [%s]%s[-]%s\n%s\n\n",
			ui.Tag(color), sender, dim, m.Timestamp.In(now.Location()).Format("15:04"), glyph, display(m.Content))
	}
	return sb.String()
}

func (t *Thread) glyph(s store.Status) string {
	g := StatusGlyph(s)
	if g == "" {
		return ""
	}
	color := t.theme.DimColor
	if s == store.StatusRead {
		color = t.theme.ReadColor
	}
	return fmt.Sprintf(" [%s]%s[-]", ui.Tag(color), g)
}

// Messages returns the message view (for focus management).
func (t *Thread) Messages() *tview.TextView {
	return t.messages
}

// Composer returns the composer (for focus management).
func (t *Thread) Composer() *Composer {
	return t.composer
}
