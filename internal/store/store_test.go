package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already migrated; a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + index)", result.Version)
	}
}

func TestKVPutGetDelete(t *testing.T) {
	db := testDB(t)

	if _, ok, err := db.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v; want absent", ok, err)
	}

	if err := db.Put("a", []byte(`1`)); err != nil {
		t.Fatal(err)
	}
	if err := db.Put("a", []byte(`2`)); err != nil {
		t.Fatal(err)
	}
	if err := db.Put("b", []byte(`3`)); err != nil {
		t.Fatal(err)
	}

	v, ok, err := db.Get("a")
	if err != nil || !ok {
		t.Fatalf("Get(a) ok=%v err=%v", ok, err)
	}
	if string(v) != "2" {
		t.Errorf("a = %q, want 2 (overwrite)", v)
	}

	keys, err := db.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("keys = %v, want [a b]", keys)
	}

	if err := db.Delete("a", "b", "never-written"); err != nil {
		t.Fatal(err)
	}
	keys, _ = db.Keys()
	if len(keys) != 0 {
		t.Errorf("keys after delete = %v, want none", keys)
	}
}

func TestSaveLoadUser(t *testing.T) {
	db := testDB(t)

	u := User{ID: "1", Name: "Demo User", Email: "demo@example.com", IsOnline: true}
	if err := db.Save(KeyUser, u); err != nil {
		t.Fatal(err)
	}

	var got User
	if err := db.Load(KeyUser, &got); err != nil {
		t.Fatal(err)
	}
	if got != u {
		t.Errorf("got %+v, want %+v", got, u)
	}
}

func TestLoadMissing(t *testing.T) {
	db := testDB(t)

	var u User
	if err := db.Load(KeyUser, &u); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	db := testDB(t)

	if err := db.Save(KeyUser, User{ID: "1", Name: "No Email"}); err == nil {
		t.Error("Save() accepted a user without email")
	}
	if _, ok, _ := db.Get(KeyUser); ok {
		t.Error("invalid user was written")
	}
}

// TestLoadFailsClosed covers the shapes a stale or hand-edited database can
// hold. Each must surface as ErrInvalidRecord without touching the target.
func TestLoadFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"bare legacy array", `[{"id":"1","name":"Alice Johnson"}]`},
		{"unknown version", `{"version":99,"data":[]}`},
		{"null data", `{"version":1,"data":null}`},
		{"unknown field", `{"version":1,"data":[{"id":"1","name":"A","nickname":"x"}]}`},
		{"missing name", `{"version":1,"data":[{"id":"1"}]}`},
		{"bad email", `{"version":1,"data":[{"id":"1","name":"A","email":"nope"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testDB(t)
			if err := db.Put(KeyContacts, []byte(tt.raw)); err != nil {
				t.Fatal(err)
			}
			got := []Contact{{ID: "keep", Name: "Keep"}}
			err := db.Load(KeyContacts, &got)
			if !errors.Is(err, ErrInvalidRecord) {
				t.Fatalf("err = %v, want ErrInvalidRecord", err)
			}
			if len(got) != 1 || got[0].ID != "keep" {
				t.Errorf("target modified on failure: %+v", got)
			}
		})
	}
}

func TestLoadRejectsBadMessageStatus(t *testing.T) {
	db := testDB(t)

	raw := `{"version":1,"data":{"2":[{"id":"m1","content":"hi","senderId":"1","receiverId":"2","timestamp":"2024-01-01T00:00:00Z","status":"lost","type":"text"}]}}`
	if err := db.Put(KeyMessages, []byte(raw)); err != nil {
		t.Fatal(err)
	}
	var got map[string][]Message
	if err := db.Load(KeyMessages, &got); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("err = %v, want ErrInvalidRecord", err)
	}
}

func TestMessagesAndChatsRoundTrip(t *testing.T) {
	db := testDB(t)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m1 := Message{ID: "m1", Content: "hello", SenderID: "1", ReceiverID: "2", Timestamp: ts, Status: StatusDelivered, Type: TypeText}
	m2 := Message{ID: "m2", Content: "again", SenderID: "1", ReceiverID: "2", Timestamp: ts.Add(time.Minute), Status: StatusSent, Type: TypeText}
	msgs := map[string][]Message{"2": {m1, m2}}
	chats := []Chat{{ID: "c1", Participants: []string{"1", "2"}, LastMessage: &m2, UpdatedAt: m2.Timestamp}}

	if err := db.Save(KeyMessages, msgs); err != nil {
		t.Fatal(err)
	}
	if err := db.Save(KeyChats, chats); err != nil {
		t.Fatal(err)
	}

	var gotMsgs map[string][]Message
	if err := db.Load(KeyMessages, &gotMsgs); err != nil {
		t.Fatal(err)
	}
	thread := gotMsgs["2"]
	if len(thread) != 2 || thread[0].ID != "m1" || thread[1].ID != "m2" {
		t.Fatalf("thread = %+v, want [m1 m2]", thread)
	}
	if thread[0].Status != StatusDelivered || !thread[1].Timestamp.Equal(m2.Timestamp) {
		t.Errorf("thread fields not preserved: %+v", thread)
	}

	var gotChats []Chat
	if err := db.Load(KeyChats, &gotChats); err != nil {
		t.Fatal(err)
	}
	if len(gotChats) != 1 || gotChats[0].LastMessage == nil || gotChats[0].LastMessage.ID != "m2" {
		t.Errorf("chats = %+v, want one chat with last message m2", gotChats)
	}
}

func TestChatParticipantsValidated(t *testing.T) {
	db := testDB(t)

	bad := []Chat{{ID: "c1", Participants: []string{"1"}, UpdatedAt: time.Now()}}
	if err := db.Save(KeyChats, bad); err == nil {
		t.Error("Save() accepted a chat with one participant")
	}
}

func TestChatCounterparty(t *testing.T) {
	c := Chat{Participants: []string{"1", "2"}}
	if got := c.Counterparty("1"); got != "2" {
		t.Errorf("Counterparty(1) = %q, want 2", got)
	}
	if !c.Has("2") || c.Has("3") {
		t.Error("Has() mismatch")
	}
}
