package store

import "time"

// Status is the delivery lifecycle stage of a message.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// MessageType describes the payload of a message.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeFile  MessageType = "file"
)

// User is the signed-in session subject.
type User struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Avatar   string `json:"avatar,omitempty" validate:"omitempty,url"`
	IsOnline bool   `json:"isOnline,omitempty"`
}

// Contact is a directory entry representing a potential chat counterparty.
type Contact struct {
	ID       string     `json:"id" validate:"required"`
	Name     string     `json:"name" validate:"required"`
	Email    string     `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string     `json:"phone,omitempty"`
	Avatar   string     `json:"avatar,omitempty" validate:"omitempty,url"`
	IsOnline bool       `json:"isOnline,omitempty"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// Message is a single entry in a contact thread. Only Status changes after
// creation.
type Message struct {
	ID         string      `json:"id" validate:"required"`
	Content    string      `json:"content" validate:"required"`
	SenderID   string      `json:"senderId" validate:"required"`
	ReceiverID string      `json:"receiverId" validate:"required"`
	Timestamp  time.Time   `json:"timestamp" validate:"required"`
	Status     Status      `json:"status" validate:"required,oneof=sent delivered read"`
	Type       MessageType `json:"type" validate:"required,oneof=text image file"`
}

// Chat summarizes the most recent exchange between the session user and one
// contact. Participants[0] is the user, Participants[1] the contact.
type Chat struct {
	ID           string    `json:"id" validate:"required"`
	Participants []string  `json:"participants" validate:"len=2,dive,required"`
	LastMessage  *Message  `json:"lastMessage,omitempty"`
	UnreadCount  int       `json:"unreadCount" validate:"min=0"`
	UpdatedAt    time.Time `json:"updatedAt" validate:"required"`
}

// Has reports whether id is one of the chat participants.
func (c *Chat) Has(id string) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// Counterparty returns the participant that is not userID.
func (c *Chat) Counterparty(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// Persisted keys.
const (
	KeyUser     = "user"
	KeyContacts = "contacts"
	KeyMessages = "messages"
	KeyChats    = "chats"
)

// StateKeys lists every key owned by a signed-in session.
var StateKeys = []string{KeyUser, KeyContacts, KeyMessages, KeyChats}
