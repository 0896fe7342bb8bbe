package ui

// MenuHint describes a keyboard shortcut for display in the menu.
type MenuHint struct {
	Key         string
	Description string
}

// Component is implemented by every view the app navigates to. Name feeds
// the breadcrumb trail.
type Component interface {
	Name() string
}
