package messages

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/delivery"
	"github.com/matheus3301/huddle/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrEmptyContent is returned when a message body is blank after trimming.
	ErrEmptyContent = errors.New("message content is empty")
	// ErrNotSignedIn is returned when no session user is set.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrUnknownContact is returned when the contact lookup rejects an id.
	ErrUnknownContact = errors.New("unknown contact")
)

// DefaultDeliveryDelay is how long a sent message waits before it is marked
// delivered.
const DefaultDeliveryDelay = time.Second

// ContactLookup resolves contact ids. The contact directory satisfies it.
type ContactLookup interface {
	Get(id string) (store.Contact, bool)
}

// Options tune a Store.
type Options struct {
	// DeliveryDelay defaults to DefaultDeliveryDelay when zero.
	DeliveryDelay time.Duration
	// Contacts, when set, rejects sends to ids it does not know.
	Contacts ContactLookup
	// Now defaults to time.Now.
	Now func() time.Time
}

// Stats summarizes the loaded threads.
type Stats struct {
	Threads  int
	Messages int
	Unread   int
}

// Store owns every contact thread and the chat summaries derived from them.
// It is inert until SignedIn is called.
type Store struct {
	db     *store.DB
	bus    *bus.Bus
	sched  *delivery.Scheduler
	logger *zap.Logger
	opts   Options

	mu      sync.Mutex
	user    *store.User
	threads map[string][]store.Message
	chats   []store.Chat
}

// New creates a message store backed by db.
func New(db *store.DB, b *bus.Bus, sched *delivery.Scheduler, logger *zap.Logger, opts Options) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DeliveryDelay <= 0 {
		opts.DeliveryDelay = DefaultDeliveryDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if sched == nil {
		sched = delivery.NewScheduler(logger)
	}
	return &Store{
		db:      db,
		bus:     b,
		sched:   sched,
		logger:  logger,
		opts:    opts,
		threads: make(map[string][]store.Message),
	}
}

// Send appends an outgoing text message to the contact's thread and schedules
// its delivery.
func (s *Store) Send(contactID, content string) (store.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return store.Message{}, ErrEmptyContent
	}
	if err := s.checkContact(contactID); err != nil {
		return store.Message{}, err
	}

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return store.Message{}, ErrNotSignedIn
	}
	if contactID == s.user.ID {
		s.mu.Unlock()
		return store.Message{}, fmt.Errorf("%w: cannot message yourself", ErrUnknownContact)
	}
	msg, err := s.newMessage(s.user.ID, contactID, content, store.StatusSent)
	if err != nil {
		s.mu.Unlock()
		return store.Message{}, err
	}
	unread := s.appendLocked(contactID, msg, false)
	s.mu.Unlock()

	s.logger.Debug("message sent", zap.String("contact_id", contactID), zap.String("msg_id", msg.ID))
	s.bus.Emit(bus.MessageSent, bus.MessageRef{ContactID: contactID, MessageID: msg.ID})
	s.bus.Emit(bus.ChatUpdated, bus.ThreadRef{ContactID: contactID, Count: unread})
	s.scheduleDelivery(contactID, msg.ID)
	return msg, nil
}

// Receive appends an inbound message from the contact, as if the contact had
// replied. The chat's unread count grows by one.
func (s *Store) Receive(contactID, content string) (store.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return store.Message{}, ErrEmptyContent
	}
	if err := s.checkContact(contactID); err != nil {
		return store.Message{}, err
	}

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return store.Message{}, ErrNotSignedIn
	}
	if contactID == s.user.ID {
		s.mu.Unlock()
		return store.Message{}, fmt.Errorf("%w: cannot message yourself", ErrUnknownContact)
	}
	msg, err := s.newMessage(contactID, s.user.ID, content, store.StatusDelivered)
	if err != nil {
		s.mu.Unlock()
		return store.Message{}, err
	}
	unread := s.appendLocked(contactID, msg, true)
	s.mu.Unlock()

	s.bus.Emit(bus.MessageReceived, bus.MessageRef{ContactID: contactID, MessageID: msg.ID})
	s.bus.Emit(bus.ChatUpdated, bus.ThreadRef{ContactID: contactID, Count: unread})
	return msg, nil
}

// MessagesFor returns a copy of the contact's thread, oldest first.
func (s *Store) MessagesFor(contactID string) []store.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.threads[contactID])
}

// MarkRead marks every message the contact sent in its thread as read and
// clears the chat's unread count. It returns how many messages changed.
func (s *Store) MarkRead(contactID string) int {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return 0
	}
	thread := s.threads[contactID]
	n := 0
	for i := range thread {
		if thread[i].SenderID != s.user.ID && thread[i].Status != store.StatusRead {
			thread[i].Status = store.StatusRead
			n++
		}
	}
	chatChanged := false
	if c := s.chatLocked(contactID); c != nil {
		if c.UnreadCount != 0 {
			c.UnreadCount = 0
			chatChanged = true
		}
		if c.LastMessage != nil && n > 0 {
			last := thread[len(thread)-1]
			c.LastMessage = &last
			chatChanged = true
		}
	}
	if n > 0 {
		s.persistLocked(store.KeyMessages, s.threads)
	}
	if chatChanged {
		s.persistLocked(store.KeyChats, s.chats)
	}
	s.mu.Unlock()

	if n > 0 {
		s.bus.Emit(bus.MessageRead, bus.ThreadRef{ContactID: contactID, Count: n})
	}
	if chatChanged {
		s.bus.Emit(bus.ChatUpdated, bus.ThreadRef{ContactID: contactID})
	}
	return n
}

// Chats returns every chat, most recently updated first.
func (s *Store) Chats() []store.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Chat, len(s.chats))
	for i, c := range s.chats {
		out[i] = copyChat(c)
	}
	sortChats(out)
	return out
}

// Chat returns the chat with the given contact, if one exists.
func (s *Store) Chat(contactID string) (store.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.chatLocked(contactID)
	if c == nil {
		return store.Chat{}, false
	}
	return copyChat(*c), true
}

// Stats counts loaded threads, messages and unread messages.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st Stats
	for _, t := range s.threads {
		if len(t) > 0 {
			st.Threads++
		}
		st.Messages += len(t)
	}
	for _, c := range s.chats {
		st.Unread += c.UnreadCount
	}
	return st
}

// SignedIn loads the user's threads and rebuilds the chat list from them.
// Messages still marked sent get their delivery rescheduled.
func (s *Store) SignedIn(user store.User) error {
	threads := map[string][]store.Message{}
	if err := s.db.Load(store.KeyMessages, &threads); err != nil {
		s.logLoad(store.KeyMessages, err)
		threads = map[string][]store.Message{}
	}
	if err := checkThreads(user.ID, threads); err != nil {
		s.logger.Warn("discarding inconsistent message history", zap.Error(err))
		threads = map[string][]store.Message{}
	}

	var stored []store.Chat
	if err := s.db.Load(store.KeyChats, &stored); err != nil {
		s.logLoad(store.KeyChats, err)
		stored = nil
	}
	chats, err := deriveChats(user.ID, threads, stored)
	if err != nil {
		return fmt.Errorf("derive chats: %w", err)
	}

	var pending []bus.MessageRef
	for contactID, t := range threads {
		for _, m := range t {
			if m.SenderID == user.ID && m.Status == store.StatusSent {
				pending = append(pending, bus.MessageRef{ContactID: contactID, MessageID: m.ID})
			}
		}
	}

	s.mu.Lock()
	u := user
	s.user = &u
	s.threads = threads
	s.chats = chats
	if (len(chats) > 0 || len(stored) > 0) && !reflect.DeepEqual(chats, stored) {
		s.persistLocked(store.KeyChats, s.chats)
	}
	s.mu.Unlock()

	for _, ref := range pending {
		s.scheduleDelivery(ref.ContactID, ref.MessageID)
	}
	s.logger.Info("message history loaded",
		zap.Int("threads", len(threads)),
		zap.Int("chats", len(chats)),
		zap.Int("pending_deliveries", len(pending)),
	)
	return nil
}

// SignedOut cancels pending deliveries and drops everything held in memory.
func (s *Store) SignedOut() error {
	// Deliveries take s.mu, so they must be drained before it is held.
	s.sched.CancelAll()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.threads = make(map[string][]store.Message)
	s.chats = nil
	return nil
}

// Close stops the delivery scheduler for good.
func (s *Store) Close() {
	s.sched.Stop()
}

func (s *Store) checkContact(contactID string) error {
	if contactID == "" {
		return ErrUnknownContact
	}
	if s.opts.Contacts == nil {
		return nil
	}
	if _, ok := s.opts.Contacts.Get(contactID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownContact, contactID)
	}
	return nil
}

func (s *Store) newMessage(from, to, content string, st store.Status) (store.Message, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return store.Message{}, fmt.Errorf("message id: %w", err)
	}
	return store.Message{
		ID:         id.String(),
		Content:    content,
		SenderID:   from,
		ReceiverID: to,
		Timestamp:  s.opts.Now(),
		Status:     st,
		Type:       store.TypeText,
	}, nil
}

// appendLocked adds msg to the thread, upserts the chat and persists both.
// It returns the chat's unread count.
func (s *Store) appendLocked(contactID string, msg store.Message, inbound bool) int {
	s.threads[contactID] = append(s.threads[contactID], msg)
	s.persistLocked(store.KeyMessages, s.threads)

	c := s.chatLocked(contactID)
	if c == nil {
		s.chats = append(s.chats, store.Chat{
			ID:           uuid.NewString(),
			Participants: []string{s.user.ID, contactID},
		})
		c = &s.chats[len(s.chats)-1]
	}
	last := msg
	c.LastMessage = &last
	c.UpdatedAt = msg.Timestamp
	if inbound {
		c.UnreadCount++
	}
	s.persistLocked(store.KeyChats, s.chats)
	return c.UnreadCount
}

func (s *Store) chatLocked(contactID string) *store.Chat {
	if s.user == nil {
		return nil
	}
	for i := range s.chats {
		c := &s.chats[i]
		if c.Has(s.user.ID) && c.Counterparty(s.user.ID) == contactID {
			return c
		}
	}
	return nil
}

func (s *Store) scheduleDelivery(contactID, msgID string) {
	_, err := s.sched.Schedule("deliver "+msgID, s.opts.DeliveryDelay, func() {
		s.deliver(contactID, msgID)
	})
	if err != nil {
		s.logger.Warn("delivery not scheduled", zap.String("msg_id", msgID), zap.Error(err))
	}
}

// deliver moves a sent message to delivered. Read messages are left alone.
func (s *Store) deliver(contactID, msgID string) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return
	}
	thread := s.threads[contactID]
	idx := slices.IndexFunc(thread, func(m store.Message) bool { return m.ID == msgID })
	if idx < 0 || thread[idx].Status != store.StatusSent {
		s.mu.Unlock()
		return
	}
	thread[idx].Status = store.StatusDelivered
	s.persistLocked(store.KeyMessages, s.threads)
	if c := s.chatLocked(contactID); c != nil && c.LastMessage != nil && c.LastMessage.ID == msgID {
		updated := thread[idx]
		c.LastMessage = &updated
		s.persistLocked(store.KeyChats, s.chats)
	}
	s.mu.Unlock()

	s.logger.Debug("message delivered", zap.String("contact_id", contactID), zap.String("msg_id", msgID))
	s.bus.Emit(bus.MessageDelivered, bus.MessageRef{ContactID: contactID, MessageID: msgID})
}

func (s *Store) persistLocked(key string, v any) {
	if err := s.db.Save(key, v); err != nil {
		s.logger.Error("failed to persist", zap.String("key", key), zap.Error(err))
		s.bus.Emit(bus.StorePersistFailed, bus.PersistFailure{Key: key, Err: err})
	}
}

func (s *Store) logLoad(key string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	s.logger.Warn("ignoring stored record", zap.String("key", key), zap.Error(err))
}

func copyChat(c store.Chat) store.Chat {
	c.Participants = slices.Clone(c.Participants)
	if c.LastMessage != nil {
		m := *c.LastMessage
		c.LastMessage = &m
	}
	return c
}

func sortChats(chats []store.Chat) {
	slices.SortStableFunc(chats, func(a, b store.Chat) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
}
