package messages

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/matheus3301/huddle/internal/store"
)

// checkThreads verifies that message ids are unique and that every message
// in thread c was exchanged between userID and c.
func checkThreads(userID string, threads map[string][]store.Message) error {
	seen := make(map[string]string)
	for contactID, thread := range threads {
		for _, m := range thread {
			if prev, dup := seen[m.ID]; dup {
				return fmt.Errorf("message %s appears in threads %s and %s", m.ID, prev, contactID)
			}
			seen[m.ID] = contactID

			outbound := m.SenderID == userID && m.ReceiverID == contactID
			inbound := m.SenderID == contactID && m.ReceiverID == userID
			if !outbound && !inbound {
				return fmt.Errorf("message %s in thread %s is between %s and %s", m.ID, contactID, m.SenderID, m.ReceiverID)
			}
		}
	}
	return nil
}

// deriveChats rebuilds the chat list from the threads. Existing chat ids and
// unread counts are kept; chats that belong to another user or have no
// messages are dropped. The result is sorted newest first.
func deriveChats(userID string, threads map[string][]store.Message, existing []store.Chat) ([]store.Chat, error) {
	byContact := make(map[string]store.Chat)
	for _, c := range existing {
		if len(c.Participants) != 2 || !c.Has(userID) {
			continue
		}
		other := c.Counterparty(userID)
		if _, dup := byContact[other]; dup {
			continue
		}
		byContact[other] = c
	}

	contactIDs := make([]string, 0, len(threads))
	for id, t := range threads {
		if len(t) > 0 {
			contactIDs = append(contactIDs, id)
		}
	}
	sort.Strings(contactIDs)

	chats := make([]store.Chat, 0, len(contactIDs))
	for _, contactID := range contactIDs {
		thread := threads[contactID]
		last := thread[len(thread)-1]

		c, ok := byContact[contactID]
		if !ok {
			id, err := uuid.NewRandom()
			if err != nil {
				return nil, err
			}
			c = store.Chat{ID: id.String()}
		}
		c.Participants = []string{userID, contactID}
		c.LastMessage = &last
		c.UpdatedAt = last.Timestamp
		if c.UnreadCount < 0 {
			c.UnreadCount = 0
		}
		chats = append(chats, c)
	}
	sortChats(chats)
	return chats, nil
}
