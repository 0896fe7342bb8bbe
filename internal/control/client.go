package control

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/matheus3301/huddle/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client wraps a gRPC connection to a running huddle.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the control socket. The connection is lazy: errors
// surface on the first call.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial control socket: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, req proto.Message, out any) error {
	reply := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, fullMethod(method), req, reply); err != nil {
		return err
	}
	return fromStruct(reply, out)
}

func fields(kv map[string]any) *structpb.Struct {
	s, err := structpb.NewStruct(kv)
	if err != nil {
		// Only string values are passed.
		panic(err)
	}
	return s
}

// Status returns the running instance's status.
func (c *Client) Status(ctx context.Context) (StatusReply, error) {
	var r StatusReply
	err := c.call(ctx, MethodGetStatus, &emptypb.Empty{}, &r)
	return r, err
}

// Contacts searches the directory. An empty query lists everything.
func (c *Client) Contacts(ctx context.Context, query string) ([]store.Contact, error) {
	var r listReply[store.Contact]
	err := c.call(ctx, MethodListContacts, fields(map[string]any{"query": query}), &r)
	return r.Items, err
}

// Chats lists chats, most recent first.
func (c *Client) Chats(ctx context.Context) ([]ChatItem, error) {
	var r listReply[ChatItem]
	err := c.call(ctx, MethodListChats, &emptypb.Empty{}, &r)
	return r.Items, err
}

// Messages returns a contact's thread. contact may be an id or a name.
func (c *Client) Messages(ctx context.Context, contact string) ([]store.Message, error) {
	var r listReply[store.Message]
	err := c.call(ctx, MethodListMessages, fields(map[string]any{"contact_id": contact}), &r)
	return r.Items, err
}

// Send sends a message to contact.
func (c *Client) Send(ctx context.Context, contact, content string) (store.Message, error) {
	var r messageReply
	err := c.call(ctx, MethodSendMessage, fields(map[string]any{"contact_id": contact, "content": content}), &r)
	return r.Message, err
}

// Receive injects a message from contact.
func (c *Client) Receive(ctx context.Context, contact, content string) (store.Message, error) {
	var r messageReply
	err := c.call(ctx, MethodReceiveMessage, fields(map[string]any{"contact_id": contact, "content": content}), &r)
	return r.Message, err
}

// MarkRead marks the contact's thread read and returns how many messages
// changed.
func (c *Client) MarkRead(ctx context.Context, contact string) (int, error) {
	var r markReadReply
	err := c.call(ctx, MethodMarkRead, fields(map[string]any{"contact_id": contact}), &r)
	return r.Updated, err
}

// Watch streams events until ctx ends or the server closes the stream. fn is called
// for each event; returning an error stops the stream.
func (c *Client) Watch(ctx context.Context, fn func(EventItem) error) error {
	desc := &ServiceDesc.Streams[0]
	stream, err := c.conn.NewStream(ctx, desc, fullMethod(MethodWatchEvents))
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		msg := &structpb.Struct{}
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var evt EventItem
		if err := fromStruct(msg, &evt); err != nil {
			return err
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
}
