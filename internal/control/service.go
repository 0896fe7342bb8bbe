package control

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/contacts"
	"github.com/matheus3301/huddle/internal/messages"
	"github.com/matheus3301/huddle/internal/session"
	"github.com/matheus3301/huddle/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service implements ControlServer on top of the local stores.
type Service struct {
	profile  string
	session  *session.Store
	contacts *contacts.Directory
	messages *messages.Store
	bus      *bus.Bus
	started  time.Time
	done     chan struct{}
}

// NewService creates the control service for a profile.
func NewService(profile string, sess *session.Store, dir *contacts.Directory, msgs *messages.Store, b *bus.Bus) *Service {
	return &Service{
		profile:  profile,
		session:  sess,
		contacts: dir,
		messages: msgs,
		bus:      b,
		started:  time.Now(),
		done:     make(chan struct{}),
	}
}

// shutdown ends open WatchEvents streams.
func (s *Service) shutdown() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *Service) GetStatus(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	reply := StatusReply{
		Profile:  s.profile,
		Status:   string(s.session.Status()),
		UptimeMS: time.Since(s.started).Milliseconds(),
	}
	if u, ok := s.session.Current(); ok {
		reply.User = &u
		reply.Contacts = len(s.contacts.List())
		st := s.messages.Stats()
		reply.Chats = st.Threads
		reply.Messages = st.Messages
		reply.Unread = st.Unread
	}
	return encode(reply)
}

func (s *Service) ListContacts(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	return encode(listReply[store.Contact]{Items: s.contacts.Search(stringField(req, "query"))})
}

func (s *Service) ListChats(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	u, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	chats := s.messages.Chats()
	items := make([]ChatItem, 0, len(chats))
	for _, c := range chats {
		item := ChatItem{Chat: c}
		if contact, ok := s.contacts.Get(c.Counterparty(u.ID)); ok {
			item.ContactName = contact.Name
		}
		items = append(items, item)
	}
	return encode(listReply[ChatItem]{Items: items})
}

func (s *Service) ListMessages(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.contactFor(req)
	if err != nil {
		return nil, err
	}
	return encode(listReply[store.Message]{Items: s.messages.MessagesFor(c.ID)})
}

func (s *Service) SendMessage(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.contactFor(req)
	if err != nil {
		return nil, err
	}
	m, err := s.messages.Send(c.ID, stringField(req, "content"))
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(messageReply{Message: m})
}

func (s *Service) ReceiveMessage(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.contactFor(req)
	if err != nil {
		return nil, err
	}
	m, err := s.messages.Receive(c.ID, stringField(req, "content"))
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(messageReply{Message: m})
}

func (s *Service) MarkRead(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.contactFor(req)
	if err != nil {
		return nil, err
	}
	return encode(markReadReply{Updated: s.messages.MarkRead(c.ID)})
}

func (s *Service) WatchEvents(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ch, unsub := s.bus.Subscribe("", 64)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			out, err := toStruct(eventItem(evt))
			if err != nil {
				return grpcstatus.Errorf(codes.Internal, "encode event: %v", err)
			}
			if err := stream.Send(out); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		case <-s.done:
			return nil
		}
	}
}

func eventItem(evt bus.Event) EventItem {
	item := EventItem{
		EventID:          uuid.NewString(),
		Kind:             evt.Kind,
		OccurredAtUnixMS: evt.Timestamp.UnixMilli(),
	}
	switch p := evt.Payload.(type) {
	case bus.MessageRef:
		item.ContactID = p.ContactID
		item.MessageID = p.MessageID
	case bus.ThreadRef:
		item.ContactID = p.ContactID
	case bus.PersistFailure:
		item.Detail = p.Key + ": " + p.Err.Error()
	case store.User:
		item.Detail = p.Email
	case string:
		item.Detail = p
	}
	return item
}

func (s *Service) currentUser() (store.User, error) {
	u, ok := s.session.Current()
	if !ok {
		return store.User{}, grpcstatus.Error(codes.FailedPrecondition, messages.ErrNotSignedIn.Error())
	}
	return u, nil
}

func (s *Service) requireSession() error {
	_, err := s.currentUser()
	return err
}

// contactFor resolves the contact_id field, which may also be a name.
func (s *Service) contactFor(req *structpb.Struct) (store.Contact, error) {
	if err := s.requireSession(); err != nil {
		return store.Contact{}, err
	}
	ref := stringField(req, "contact_id")
	if ref == "" {
		return store.Contact{}, grpcstatus.Error(codes.InvalidArgument, "contact_id is required")
	}
	c, ok := s.contacts.Resolve(ref)
	if !ok {
		return store.Contact{}, grpcstatus.Errorf(codes.NotFound, "contact %q not found", ref)
	}
	return c, nil
}

func encode(v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "%v", err)
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, messages.ErrEmptyContent):
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, messages.ErrNotSignedIn):
		return grpcstatus.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, messages.ErrUnknownContact):
		return grpcstatus.Error(codes.NotFound, err.Error())
	default:
		return grpcstatus.Errorf(codes.Internal, "%v", err)
	}
}
