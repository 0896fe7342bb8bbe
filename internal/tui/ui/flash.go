package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/rivo/tview"
)

// FlashLevel represents the severity of a flash message.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashWarn
	FlashErr
)

// flashTTL is how long each level stays on screen.
var flashTTL = [...]time.Duration{
	FlashInfo: 5 * time.Second,
	FlashWarn: 8 * time.Second,
	FlashErr:  10 * time.Second,
}

// FlashMessage is a flash notification with a level and expiry. Repeat counts
// identical messages raised while it was still showing.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	Expires time.Time
	Repeat  int
}

// FlashModel holds the current transient notification. It is safe to set
// from any goroutine.
type FlashModel struct {
	mu      sync.RWMutex
	now     func() time.Time
	current FlashMessage
	watchCh chan FlashMessage
}

// NewFlashModel creates a new flash model.
func NewFlashModel() *FlashModel {
	return &FlashModel{
		now:     time.Now,
		watchCh: make(chan FlashMessage, 8),
	}
}

// Info sets an info-level flash message.
func (f *FlashModel) Info(msg string) { f.set(msg, FlashInfo) }

// Warn sets a warn-level flash message.
func (f *FlashModel) Warn(msg string) { f.set(msg, FlashWarn) }

// Err sets an error-level flash message.
func (f *FlashModel) Err(err error) { f.set(err.Error(), FlashErr) }

// Clear drops the current message.
func (f *FlashModel) Clear() {
	f.mu.Lock()
	f.current = FlashMessage{}
	f.mu.Unlock()
}

// set replaces the current message. The same text at the same level while the
// previous one still shows (a burst of persist failures, say) bumps Repeat
// and extends the expiry instead.
func (f *FlashModel) set(msg string, level FlashLevel) {
	now := f.now()
	f.mu.Lock()
	fm := FlashMessage{Text: msg, Level: level, Expires: now.Add(flashTTL[level]), Repeat: 1}
	if c := f.current; c.Text == msg && c.Level == level && !now.After(c.Expires) {
		fm.Repeat = c.Repeat + 1
	}
	f.current = fm
	f.mu.Unlock()
	select {
	case f.watchCh <- fm:
	default:
	}
}

// Current returns the current flash message, or nil if expired.
func (f *FlashModel) Current() *FlashMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.current.Text == "" || f.now().After(f.current.Expires) {
		return nil
	}
	m := f.current
	return &m
}

// Watch returns a channel that receives flash messages as they are set.
func (f *FlashModel) Watch() <-chan FlashMessage {
	return f.watchCh
}

// FlashBar is the UI component that displays flash notifications.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

// NewFlashBar creates a new flash notification bar.
func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &FlashBar{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders a flash message on the bar.
func (fb *FlashBar) Update(msg *FlashMessage) {
	fb.Clear()
	if msg == nil {
		return
	}

	var color string
	switch msg.Level {
	case FlashInfo:
		color = colorName(fb.theme.FlashInfoColor)
	case FlashWarn:
		color = colorName(fb.theme.FlashWarnColor)
	case FlashErr:
		color = colorName(fb.theme.FlashErrColor)
	}
	_, _ = fmt.Fprintf(fb, " [%s]%s[-]", color, tview.Escape(msg.Text))
	if msg.Repeat > 1 {
		_, _ = fmt.Fprintf(fb, " [%s](x%d)[-]", colorName(fb.theme.DimColor), msg.Repeat)
	}
}
