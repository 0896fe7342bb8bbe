package contacts

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/huddle/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func names(cs []store.Contact) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

func TestListSeedsDemoContacts(t *testing.T) {
	db := testDB(t)
	d := New(db, nil)
	if err := d.SignedIn(store.User{}); err != nil {
		t.Fatal(err)
	}

	got := d.List()
	want := []string{"Alice Johnson", "Bob Smith", "Carol Williams", "David Brown", "Eva Davis"}
	if len(got) != len(want) {
		t.Fatalf("got %d contacts, want %d", len(got), len(want))
	}
	for i, n := range names(got) {
		if n != want[i] {
			t.Errorf("contact %d = %q, want %q", i, n, want[i])
		}
	}
	if got[1].LastSeen == nil || time.Since(*got[1].LastSeen) < 29*time.Minute {
		t.Errorf("Bob last seen = %v, want ~30 minutes ago", got[1].LastSeen)
	}

	var stored []store.Contact
	if err := db.Load(store.KeyContacts, &stored); err != nil {
		t.Fatalf("seed not persisted: %v", err)
	}
	if len(stored) != 5 {
		t.Errorf("persisted %d contacts, want 5", len(stored))
	}
}

func TestListUsesStoredContacts(t *testing.T) {
	db := testDB(t)
	custom := []store.Contact{{ID: "x", Name: "Xavier"}}
	if err := db.Save(store.KeyContacts, custom); err != nil {
		t.Fatal(err)
	}

	got := New(db, nil).List()
	if len(got) != 1 || got[0].Name != "Xavier" {
		t.Errorf("got %v, want [Xavier]", names(got))
	}
}

func TestListReseedsInvalidRecord(t *testing.T) {
	db := testDB(t)
	if err := db.Put(store.KeyContacts, []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatal(err)
	}

	d := New(db, nil)
	if err := d.SignedIn(store.User{}); err != nil {
		t.Fatal(err)
	}
	got := d.List()
	if len(got) != 5 {
		t.Fatalf("got %d contacts, want the 5 demo contacts", len(got))
	}
	var stored []store.Contact
	if err := db.Load(store.KeyContacts, &stored); err != nil {
		t.Errorf("invalid record was not replaced: %v", err)
	}
}

func TestSearch(t *testing.T) {
	d := New(testDB(t), nil)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Alice Johnson", "Bob Smith", "Carol Williams", "David Brown", "Eva Davis"}},
		{"   ", []string{"Alice Johnson", "Bob Smith", "Carol Williams", "David Brown", "Eva Davis"}},
		{"ali", []string{"Alice Johnson"}},
		{"ALI", []string{"Alice Johnson"}},
		{"bob@", []string{"Bob Smith"}},
		{"e ", []string{"Alice Johnson"}},
		{"ali ", []string{}},
		{" smith", []string{"Bob Smith"}},
		{"  carol ", []string{}},
		{"example.com", []string{"Alice Johnson", "Bob Smith", "Carol Williams", "David Brown", "Eva Davis"}},
		{"ow", []string{"David Brown"}},
		{"zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := names(d.Search(tt.query))
			if len(got) != len(tt.want) {
				t.Fatalf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Search(%q)[%d] = %q, want %q", tt.query, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestGet(t *testing.T) {
	d := New(testDB(t), nil)

	c, ok := d.Get("3")
	if !ok || c.Name != "Carol Williams" {
		t.Errorf("Get(3) = %+v, %v", c, ok)
	}
	if _, ok := d.Get("nope"); ok {
		t.Error("Get(nope) found a contact")
	}
}

func TestSignedOutForgetsCache(t *testing.T) {
	db := testDB(t)
	d := New(db, nil)
	if err := d.SignedIn(store.User{}); err != nil {
		t.Fatal(err)
	}

	// Session sign-out deletes the key; the directory must not resurrect
	// the old list from memory.
	if err := db.Delete(store.KeyContacts); err != nil {
		t.Fatal(err)
	}
	if err := db.Save(store.KeyContacts, []store.Contact{{ID: "n", Name: "New"}}); err != nil {
		t.Fatal(err)
	}
	if err := d.SignedOut(); err != nil {
		t.Fatal(err)
	}

	got := d.List()
	if len(got) != 1 || got[0].Name != "New" {
		t.Errorf("got %v after sign-out, want [New]", names(got))
	}
}

func TestSignedOutLookupDoesNotPersist(t *testing.T) {
	db := testDB(t)
	d := New(db, nil)
	if err := d.SignedIn(store.User{}); err != nil {
		t.Fatal(err)
	}
	if err := db.Delete(store.KeyContacts); err != nil {
		t.Fatal(err)
	}
	if err := d.SignedOut(); err != nil {
		t.Fatal(err)
	}

	// A lookup that lands after sign-out still answers, but must not write
	// the demo contacts back.
	if _, ok := d.Resolve("Alice Johnson"); !ok {
		t.Error("Resolve(Alice Johnson) found nothing while signed out")
	}
	if _, ok, _ := db.Get(store.KeyContacts); ok {
		t.Error("contacts were persisted after sign-out")
	}
}

func TestListReturnsCopies(t *testing.T) {
	d := New(testDB(t), nil)
	got := d.List()
	got[0].Name = "mutated"
	if d.List()[0].Name != "Alice Johnson" {
		t.Error("List() exposed internal state")
	}
}

func TestResolve(t *testing.T) {
	d := New(testDB(t), nil)

	tests := []struct {
		ref    string
		wantID string
	}{
		{"2", "2"},
		{"bob smith", "2"},
		{"carol", "3"},
		{"eva@example.com", "5"},
		{"example", ""}, // ambiguous
		{"nobody", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		c, ok := d.Resolve(tt.ref)
		if tt.wantID == "" {
			if ok {
				t.Errorf("Resolve(%q) = %s, want no match", tt.ref, c.ID)
			}
			continue
		}
		if !ok || c.ID != tt.wantID {
			t.Errorf("Resolve(%q) = %q, %v; want %s", tt.ref, c.ID, ok, tt.wantID)
		}
	}
}
