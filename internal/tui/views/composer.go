package views

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/huddle/internal/tui/ui"
)

// Composer is the text input for sending messages. Blank input is ignored.
type Composer struct {
	*tview.InputField
	onSend func(text string) error
}

// NewComposer creates a new message composer.
func NewComposer(theme *ui.Theme) *Composer {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0).
		SetPlaceholder("Type a message...")
	input.SetBorder(true)
	input.SetBorderColor(theme.BorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetPlaceholderTextColor(theme.DimColor)
	input.SetLabelColor(theme.MenuKeyColor)

	c := &Composer{InputField: input}

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			c.submit()
		}
	})

	return c
}

// SetOnSend sets the callback when a message is sent. The input is cleared
// only when fn succeeds.
func (c *Composer) SetOnSend(fn func(text string) error) {
	c.onSend = fn
}

func (c *Composer) submit() {
	text := c.GetText()
	if strings.TrimSpace(text) == "" || c.onSend == nil {
		return
	}
	if err := c.onSend(text); err == nil {
		c.SetText("")
	}
}
