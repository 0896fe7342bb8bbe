package tui

// Layout selects how the contact list and the thread share the screen.
type Layout int

const (
	// LayoutSplit shows the contact list beside the thread.
	LayoutSplit Layout = iota
	// LayoutSingle shows one pane at a time.
	LayoutSingle
)

// DefaultCompactWidth is the width below which the single pane is used.
const DefaultCompactWidth = 100

func (l Layout) String() string {
	if l == LayoutSingle {
		return "single"
	}
	return "split"
}

// layoutFor picks the layout for a terminal width.
func layoutFor(width, compactWidth int) Layout {
	if compactWidth <= 0 {
		compactWidth = DefaultCompactWidth
	}
	if width < compactWidth {
		return LayoutSingle
	}
	return LayoutSplit
}
