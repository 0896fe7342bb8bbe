package control

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/contacts"
	"github.com/matheus3301/huddle/internal/delivery"
	"github.com/matheus3301/huddle/internal/identity"
	"github.com/matheus3301/huddle/internal/messages"
	"github.com/matheus3301/huddle/internal/session"
	"github.com/matheus3301/huddle/internal/status"
	"github.com/matheus3301/huddle/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

type harness struct {
	client  *Client
	session *session.Store
	bus     *bus.Bus
}

func startServer(t *testing.T) *harness {
	t.Helper()
	// Use a short path to stay under the Unix socket path limit.
	tmpDir, err := os.MkdirTemp("/tmp", "huddle-ctl-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	db, err := store.Open(filepath.Join(tmpDir, "huddle.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	b := bus.New()
	dir := contacts.New(db, nil)
	msgs := messages.New(db, b, delivery.NewScheduler(nil), nil, messages.Options{
		DeliveryDelay: 20 * time.Millisecond,
		Contacts:      dir,
	})
	t.Cleanup(msgs.Close)
	sess := session.New(db, b, status.NewMachine(b), identity.NewSimulated(identity.Config{}), nil, dir, msgs)

	svc := NewService("test", sess, dir, msgs, b)
	srv, err := NewServer(filepath.Join(tmpDir, "c.sock"), svc, nil)
	require.NoError(t, err)
	go func() { _ = srv.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Stop(ctx)
	})

	info, err := os.Stat(srv.SocketPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	client, err := Dial(srv.SocketPath())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return &harness{client: client, session: sess, bus: b}
}

func code(err error) codes.Code {
	return grpcstatus.Code(err)
}

func TestStatusSignedOut(t *testing.T) {
	h := startServer(t)
	ctx := context.Background()

	st, err := h.client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test", st.Profile)
	assert.Equal(t, string(status.SignedOut), st.Status)
	assert.Nil(t, st.User)

	_, err = h.client.Contacts(ctx, "")
	assert.Equal(t, codes.FailedPrecondition, code(err))
	_, err = h.client.Send(ctx, "2", "hi")
	assert.Equal(t, codes.FailedPrecondition, code(err))
}

func TestMessagingOverSocket(t *testing.T) {
	h := startServer(t)
	ctx := context.Background()
	_, err := h.session.SignIn(ctx)
	require.NoError(t, err)

	all, err := h.client.Contacts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 5)
	hits, err := h.client.Contacts(ctx, "ali")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Alice Johnson", hits[0].Name)

	sent, err := h.client.Send(ctx, "Bob Smith", "  hello bob ")
	require.NoError(t, err)
	assert.Equal(t, "hello bob", sent.Content)
	assert.Equal(t, "2", sent.ReceiverID)
	assert.Equal(t, store.StatusSent, sent.Status)

	require.Eventually(t, func() bool {
		thread, err := h.client.Messages(ctx, "2")
		return err == nil && len(thread) == 1 && thread[0].Status == store.StatusDelivered
	}, 2*time.Second, 10*time.Millisecond)

	_, err = h.client.Receive(ctx, "2", "hi back")
	require.NoError(t, err)

	chats, err := h.client.Chats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "Bob Smith", chats[0].ContactName)
	assert.Equal(t, 1, chats[0].UnreadCount)

	n, err := h.client.MarkRead(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, err := h.client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(status.SignedIn), st.Status)
	require.NotNil(t, st.User)
	assert.Equal(t, identity.DemoUser.Email, st.User.Email)
	assert.Equal(t, 5, st.Contacts)
	assert.Equal(t, 1, st.Chats)
	assert.Equal(t, 2, st.Messages)
	assert.Equal(t, 0, st.Unread)
}

func TestErrorCodes(t *testing.T) {
	h := startServer(t)
	ctx := context.Background()
	_, err := h.session.SignIn(ctx)
	require.NoError(t, err)

	_, err = h.client.Send(ctx, "2", "   ")
	assert.Equal(t, codes.InvalidArgument, code(err))
	_, err = h.client.Send(ctx, "", "hi")
	assert.Equal(t, codes.InvalidArgument, code(err))
	_, err = h.client.Send(ctx, "nobody", "hi")
	assert.Equal(t, codes.NotFound, code(err))
	_, err = h.client.Messages(ctx, "42")
	assert.Equal(t, codes.NotFound, code(err))
}

func TestWatchEvents(t *testing.T) {
	h := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	events := make(chan EventItem, 32)
	errc := make(chan error, 1)
	go func() {
		errc <- h.client.Watch(ctx, func(evt EventItem) error {
			events <- evt
			return nil
		})
	}()

	// Wait for the stream to subscribe before producing events.
	require.Eventually(t, func() bool { return h.bus.SubscriberCount() > 0 }, time.Second, 5*time.Millisecond)

	_, err := h.session.SignIn(ctx)
	require.NoError(t, err)
	sent, err := h.client.Send(ctx, "3", "hey carol")
	require.NoError(t, err)

	seen := map[string]EventItem{}
	for len(seen) < 4 {
		select {
		case evt := <-events:
			seen[evt.Kind] = evt
		case <-ctx.Done():
			t.Fatalf("timed out; saw %v", seen)
		}
	}
	for _, kind := range []string{bus.SessionSignedIn, bus.MessageSent, bus.ChatUpdated} {
		assert.Contains(t, seen, kind)
	}
	if evt, ok := seen[bus.MessageSent]; ok {
		assert.Equal(t, "3", evt.ContactID)
		assert.Equal(t, sent.ID, evt.MessageID)
		assert.NotEmpty(t, evt.EventID)
		assert.NotZero(t, evt.OccurredAtUnixMS)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			assert.Equal(t, codes.Canceled, code(err), "unexpected watch error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestStopEndsWatch(t *testing.T) {
	tmpDir, err := os.MkdirTemp("/tmp", "huddle-ctl-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	b := bus.New()
	svc := NewService("test", nil, nil, nil, b)
	srv, err := NewServer(filepath.Join(tmpDir, "c.sock"), svc, nil)
	require.NoError(t, err)
	go func() { _ = srv.Start() }()

	client, err := Dial(srv.SocketPath())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	errc := make(chan error, 1)
	go func() {
		errc <- client.Watch(context.Background(), func(EventItem) error { return nil })
	}()
	require.Eventually(t, func() bool { return b.SubscriberCount() > 0 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	srv.Stop(ctx)
	assert.Less(t, time.Since(start), 900*time.Millisecond, "Stop waited for the stream deadline")

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, context.Canceled) {
			assert.Contains(t, []codes.Code{codes.Unavailable, codes.Canceled}, code(err))
		}
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after server stop")
	}
	_, err = os.Stat(srv.SocketPath())
	assert.True(t, os.IsNotExist(err), "socket left behind")
}
