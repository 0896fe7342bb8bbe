package contacts

import (
	"time"

	"github.com/matheus3301/huddle/internal/store"
)

const avatarQuery = "?auto=compress&cs=tinysrgb&w=150&h=150&dpr=2"

// Demo returns the fixed demo directory. Last-seen times are relative to now.
func Demo(now time.Time) []store.Contact {
	bobSeen := now.Add(-30 * time.Minute)
	davidSeen := now.Add(-2 * time.Hour)
	return []store.Contact{
		{
			ID:       "1",
			Name:     "Alice Johnson",
			Email:    "alice@example.com",
			Avatar:   "https://images.pexels.com/photos/1239291/pexels-photo-1239291.jpeg" + avatarQuery,
			IsOnline: true,
		},
		{
			ID:       "2",
			Name:     "Bob Smith",
			Email:    "bob@example.com",
			Avatar:   "https://images.pexels.com/photos/697509/pexels-photo-697509.jpeg" + avatarQuery,
			LastSeen: &bobSeen,
		},
		{
			ID:       "3",
			Name:     "Carol Williams",
			Email:    "carol@example.com",
			Avatar:   "https://images.pexels.com/photos/774909/pexels-photo-774909.jpeg" + avatarQuery,
			IsOnline: true,
		},
		{
			ID:       "4",
			Name:     "David Brown",
			Email:    "david@example.com",
			Avatar:   "https://images.pexels.com/photos/91227/pexels-photo-91227.jpeg" + avatarQuery,
			LastSeen: &davidSeen,
		},
		{
			ID:       "5",
			Name:     "Eva Davis",
			Email:    "eva@example.com",
			Avatar:   "https://images.pexels.com/photos/415829/pexels-photo-415829.jpeg" + avatarQuery,
			IsOnline: true,
		},
	}
}
