package control

import "github.com/matheus3301/huddle/internal/store"

// StatusReply is the GetStatus payload.
type StatusReply struct {
	Profile  string      `json:"profile"`
	Status   string      `json:"status"`
	User     *store.User `json:"user,omitempty"`
	Contacts int         `json:"contacts"`
	Chats    int         `json:"chats"`
	Messages int         `json:"messages"`
	Unread   int         `json:"unread"`
	UptimeMS int64       `json:"uptime_ms"`
}

// ChatItem is a chat with its counterparty resolved.
type ChatItem struct {
	store.Chat
	ContactName string `json:"contactName,omitempty"`
}

// EventItem is one WatchEvents message.
type EventItem struct {
	EventID          string `json:"event_id"`
	Kind             string `json:"kind"`
	OccurredAtUnixMS int64  `json:"occurred_at_unix_ms"`
	ContactID        string `json:"contact_id,omitempty"`
	MessageID        string `json:"message_id,omitempty"`
	Detail           string `json:"detail,omitempty"`
}

type listReply[T any] struct {
	Items []T `json:"items"`
}

type messageReply struct {
	Message store.Message `json:"message"`
}

type markReadReply struct {
	Updated int `json:"updated"`
}
