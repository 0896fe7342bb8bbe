package keys

import (
	"github.com/gdamore/tcell/v2"

	"github.com/matheus3301/huddle/internal/tui/ui"
)

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Label       string
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds keybindings by scope, in registration order.
type Registry struct {
	global []*Action
	views  map[string][]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{
		views: make(map[string][]*Action),
	}
}

// AddGlobal registers a binding active on every view.
func (r *Registry) AddGlobal(action *Action) {
	r.global = append(r.global, action)
}

// AddView registers a view-specific binding.
func (r *Registry) AddView(view string, action *Action) {
	r.views[view] = append(r.views[view], action)
}

// Hints returns the visible bindings for view, view-specific ones first.
func (r *Registry) Hints(view string) []ui.MenuHint {
	return append(r.ViewHints(view), visible(r.global)...)
}

// ViewHints returns only the visible bindings registered for view.
func (r *Registry) ViewHints(view string) []ui.MenuHint {
	return visible(r.views[view])
}

func visible(actions []*Action) []ui.MenuHint {
	var hints []ui.MenuHint
	for _, a := range actions {
		if a.Visible {
			hints = append(hints, ui.MenuHint{Key: a.Label, Description: a.Description})
		}
	}
	return hints
}

// HandleEvent dispatches a key event to the first matching action, checking
// view bindings before global ones. Returns true if a handler ran.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	for _, a := range r.views[view] {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	for _, a := range r.global {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	return false
}
