package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 10)
	defer unsub()

	b.Emit(MessageSent, MessageRef{ContactID: "1", MessageID: "m1"})

	select {
	case evt := <-ch:
		if evt.Kind != MessageSent {
			t.Errorf("got kind %q, want %s", evt.Kind, MessageSent)
		}
		ref, ok := evt.Payload.(MessageRef)
		if !ok || ref.MessageID != "m1" {
			t.Errorf("payload = %#v, want MessageRef m1", evt.Payload)
		}
		if evt.Timestamp.IsZero() {
			t.Error("Emit did not stamp the event")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	b.Emit(MessageDelivered, nil)
	b.Emit(SessionSignedIn, nil)

	select {
	case evt := <-ch:
		if evt.Kind != SessionSignedIn {
			t.Errorf("got kind %q, want %s", evt.Kind, SessionSignedIn)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmptyNamespaceMatchesAll(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 10)
	defer unsub()

	b.Emit(ChatUpdated, nil)
	b.Emit(StorePersistFailed, nil)

	for _, want := range []string{ChatUpdated, StorePersistFailed} {
		select {
		case evt := <-ch:
			if evt.Kind != want {
				t.Errorf("got %q, want %q", evt.Kind, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %s", want)
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	unsub()
	unsub() // second call is harmless

	b.Emit(SessionSignedOut, nil)

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
	if n := b.SubscriberCount(); n != 0 {
		t.Errorf("SubscriberCount = %d, want 0", n)
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 1)
	defer unsub()

	b.Emit(MessageSent, nil)
	// Dropped: buffer is full.
	b.Emit(MessageDelivered, nil)

	evt := <-ch
	if evt.Kind != MessageSent {
		t.Errorf("got %q, want %s", evt.Kind, MessageSent)
	}
}

func TestNilBusPublish(t *testing.T) {
	var b *Bus
	b.Emit(MessageSent, nil)
}
