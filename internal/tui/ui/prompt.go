package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Prompt is the ':' command input bar.
type Prompt struct {
	*tview.InputField
	theme    *Theme
	onSubmit func(text string)
	onCancel func()
}

// NewPrompt creates a new prompt input bar.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField()
	input.SetBorder(true)
	input.SetBorderColor(theme.PromptBorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)
	input.SetLabel(":")
	input.SetTitle(" Command ")

	p := &Prompt{
		InputField: input,
		theme:      theme,
	}

	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			text := p.GetText()
			p.SetText("")
			if p.onSubmit != nil {
				p.onSubmit(text)
			}
		case tcell.KeyEscape:
			p.SetText("")
			if p.onCancel != nil {
				p.onCancel()
			}
		}
	})

	return p
}

// SetOnSubmit sets the callback when the prompt is submitted. It also runs
// for empty input so the caller can close the prompt.
func (p *Prompt) SetOnSubmit(fn func(text string)) {
	p.onSubmit = fn
}

// SetOnCancel sets the callback when the prompt is cancelled.
func (p *Prompt) SetOnCancel(fn func()) {
	p.onCancel = fn
}
