package model

import (
	"context"
	"sync"

	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/contacts"
	"github.com/matheus3301/huddle/internal/messages"
	"github.com/matheus3301/huddle/internal/session"
	"github.com/matheus3301/huddle/internal/status"
	"github.com/matheus3301/huddle/internal/store"
)

// ContactRow pairs a directory entry with its chat summary, if any.
type ContactRow struct {
	Contact store.Contact
	Chat    *store.Chat
}

// Counts summarizes the signed-in state for the header.
type Counts struct {
	Contacts int
	Chats    int
	Unread   int
}

// ViewModel reads from the stores and holds navigation state: the search
// query and the open thread. The stores stay the source of truth; the view
// model never caches their data.
type ViewModel struct {
	sess     *session.Store
	contacts *contacts.Directory
	msgs     *messages.Store

	mu     sync.RWMutex
	query  string
	active string
}

// NewViewModel creates a view model over the stores.
func NewViewModel(sess *session.Store, dir *contacts.Directory, msgs *messages.Store) *ViewModel {
	return &ViewModel{
		sess:     sess,
		contacts: dir,
		msgs:     msgs,
	}
}

// User returns the signed-in user.
func (vm *ViewModel) User() (store.User, bool) {
	return vm.sess.Current()
}

// Status returns the session state.
func (vm *ViewModel) Status() status.State {
	return vm.sess.Status()
}

// SignIn runs the sign-in flow.
func (vm *ViewModel) SignIn(ctx context.Context) error {
	_, err := vm.sess.SignIn(ctx)
	return err
}

// SignOut ends the session and drops navigation state.
func (vm *ViewModel) SignOut() error {
	vm.Reset()
	return vm.sess.SignOut()
}

// Reset clears the query and closes the open thread.
func (vm *ViewModel) Reset() {
	vm.mu.Lock()
	vm.query, vm.active = "", ""
	vm.mu.Unlock()
}

// SetQuery sets the contact search text.
func (vm *ViewModel) SetQuery(q string) {
	vm.mu.Lock()
	vm.query = q
	vm.mu.Unlock()
}

// Query returns the contact search text.
func (vm *ViewModel) Query() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.query
}

// Rows returns the contacts matching the query with their chats.
func (vm *ViewModel) Rows() []ContactRow {
	if _, ok := vm.User(); !ok {
		return nil
	}
	var list []store.Contact
	if q := vm.Query(); q != "" {
		list = vm.contacts.Search(q)
	} else {
		list = vm.contacts.List()
	}

	rows := make([]ContactRow, 0, len(list))
	for _, c := range list {
		row := ContactRow{Contact: c}
		if chat, ok := vm.msgs.Chat(c.ID); ok {
			row.Chat = &chat
		}
		rows = append(rows, row)
	}
	return rows
}

// Counts returns the header counters; zero while signed out.
func (vm *ViewModel) Counts() Counts {
	if _, ok := vm.User(); !ok {
		return Counts{}
	}
	st := vm.msgs.Stats()
	return Counts{
		Contacts: len(vm.contacts.List()),
		Chats:    st.Threads,
		Unread:   st.Unread,
	}
}

// Resolve finds a contact by id or name.
func (vm *ViewModel) Resolve(ref string) (store.Contact, bool) {
	return vm.contacts.Resolve(ref)
}

// Open makes contactID the active thread and marks it read.
func (vm *ViewModel) Open(contactID string) (store.Contact, bool) {
	c, ok := vm.contacts.Get(contactID)
	if !ok {
		return store.Contact{}, false
	}
	vm.mu.Lock()
	vm.active = c.ID
	vm.mu.Unlock()
	vm.msgs.MarkRead(c.ID)
	return c, true
}

// Close leaves the active thread.
func (vm *ViewModel) Close() {
	vm.mu.Lock()
	vm.active = ""
	vm.mu.Unlock()
}

// Active returns the contact whose thread is open.
func (vm *ViewModel) Active() (store.Contact, bool) {
	vm.mu.RLock()
	id := vm.active
	vm.mu.RUnlock()
	if id == "" {
		return store.Contact{}, false
	}
	return vm.contacts.Get(id)
}

// Thread returns the open thread's messages.
func (vm *ViewModel) Thread() []store.Message {
	c, ok := vm.Active()
	if !ok {
		return nil
	}
	return vm.msgs.MessagesFor(c.ID)
}

// Chat returns the chat summary for contactID.
func (vm *ViewModel) Chat(contactID string) (*store.Chat, bool) {
	chat, ok := vm.msgs.Chat(contactID)
	if !ok {
		return nil, false
	}
	return &chat, true
}

// Send sends content to the open thread.
func (vm *ViewModel) Send(content string) error {
	c, ok := vm.Active()
	if !ok {
		return messages.ErrUnknownContact
	}
	_, err := vm.msgs.Send(c.ID, content)
	return err
}

// Receive records an inbound message in the open thread.
func (vm *ViewModel) Receive(content string) error {
	c, ok := vm.Active()
	if !ok {
		return messages.ErrUnknownContact
	}
	_, err := vm.msgs.Receive(c.ID, content)
	return err
}

// Observe keeps the open thread read as messages arrive in it. It returns
// true when evt concerns the open thread.
func (vm *ViewModel) Observe(evt bus.Event) bool {
	vm.mu.RLock()
	active := vm.active
	vm.mu.RUnlock()
	if active == "" {
		return false
	}

	switch p := evt.Payload.(type) {
	case bus.MessageRef:
		if p.ContactID != active {
			return false
		}
		if evt.Kind == bus.MessageReceived {
			vm.msgs.MarkRead(active)
		}
		return true
	case bus.ThreadRef:
		return p.ContactID == active
	}
	return false
}
