package views

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/matheus3301/huddle/internal/store"
)

// SeparatorGap is the silence after which the thread prints a time separator.
const SeparatorGap = 5 * time.Minute

// MessageTime formats a message timestamp relative to now: "15:04" today,
// "Yesterday 15:04", otherwise "Jan 02, 15:04".
func MessageTime(t, now time.Time) string {
	t = t.In(now.Location())
	switch {
	case sameDay(t, now):
		return t.Format("15:04")
	case sameDay(t, now.AddDate(0, 0, -1)):
		return "Yesterday " + t.Format("15:04")
	default:
		return t.Format("Jan 02, 15:04")
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// NeedsSeparator reports whether a separator goes before the message at
// index i.
func NeedsSeparator(msgs []store.Message, i int) bool {
	if i == 0 {
		return true
	}
	return msgs[i].Timestamp.Sub(msgs[i-1].Timestamp) > SeparatorGap
}

// LastSeen describes a contact's presence.
func LastSeen(c store.Contact, now time.Time) string {
	if c.IsOnline {
		return "Online"
	}
	if c.LastSeen != nil {
		return "Last seen " + humanize.RelTime(*c.LastSeen, now, "ago", "from now")
	}
	return "Last seen recently"
}

// StatusGlyph returns the delivery marker for an outbound message.
func StatusGlyph(s store.Status) string {
	switch s {
	case store.StatusSent:
		return "✓"
	case store.StatusDelivered, store.StatusRead:
		return "✓✓"
	default:
		return ""
	}
}

// Preview is the one-line chat summary shown next to a contact.
func Preview(m *store.Message, userID string, max int) string {
	if m == nil {
		return ""
	}
	text := strings.Join(strings.Fields(m.Content), " ")
	if m.SenderID == userID {
		text = "You: " + text
	}
	return truncate(text, max)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
