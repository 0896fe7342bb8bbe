package bus

import "time"

// Event kinds published by the stores. Subscribers filter by prefix, so the
// namespace before the dot groups related kinds.
const (
	SessionStatusChanged = "session.status_changed"
	SessionSignedIn      = "session.signed_in"
	SessionSignedOut     = "session.signed_out"
	SessionSignInFailed  = "session.sign_in_failed"

	MessageSent      = "message.sent"
	MessageDelivered = "message.delivered"
	MessageReceived  = "message.received"
	MessageRead      = "message.read"

	ChatUpdated = "chat.updated"

	StorePersistFailed = "store.persist_failed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// MessageRef identifies a message within a contact thread.
type MessageRef struct {
	ContactID string
	MessageID string
}

// NewEvent builds an event stamped with the current time.
func NewEvent(kind string, payload any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
}

// ThreadRef identifies a contact thread. Count carries the number of
// messages affected (read receipts) or the unread count (chat updates).
type ThreadRef struct {
	ContactID string
	Count     int
}

// PersistFailure is the payload of StorePersistFailed.
type PersistFailure struct {
	Key string
	Err error
}
