package contacts

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/huddle/internal/store"
	"go.uber.org/zap"
)

// Directory is the contact list of the signed-in user. It is loaded once
// from the store and seeded with demo contacts when nothing usable is there.
type Directory struct {
	db     *store.DB
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	signedIn bool
	loaded   bool
	contacts []store.Contact
}

// New creates a directory backed by db.
func New(db *store.DB, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{db: db, logger: logger, now: time.Now}
}

// List returns every contact in directory order.
func (d *Directory) List() []store.Contact {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loadLocked()
	return cloneContacts(d.contacts)
}

// Search returns the contacts whose name or email contains query, ignoring
// case. The query is matched as typed, surrounding spaces included; a blank
// query returns the whole directory.
func (d *Directory) Search(query string) []store.Contact {
	all := d.List()
	if strings.TrimSpace(query) == "" {
		return all
	}
	q := strings.ToLower(query)
	out := make([]store.Contact, 0, len(all))
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Email), q) {
			out = append(out, c)
		}
	}
	return out
}

// Get returns the contact with the given id.
func (d *Directory) Get(id string) (store.Contact, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loadLocked()
	i := slices.IndexFunc(d.contacts, func(c store.Contact) bool { return c.ID == id })
	if i < 0 {
		return store.Contact{}, false
	}
	return cloneContacts(d.contacts[i : i+1])[0], true
}

// Resolve finds a contact by id, then by case-insensitive full name, then by
// a search that matches exactly one contact.
func (d *Directory) Resolve(ref string) (store.Contact, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return store.Contact{}, false
	}
	if c, ok := d.Get(ref); ok {
		return c, true
	}
	all := d.List()
	for _, c := range all {
		if strings.EqualFold(c.Name, ref) {
			return c, true
		}
	}
	if hits := d.Search(ref); len(hits) == 1 {
		return hits[0], true
	}
	return store.Contact{}, false
}

// SignedIn loads the directory eagerly.
func (d *Directory) SignedIn(store.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.signedIn = true
	d.loaded = false
	d.loadLocked()
	return nil
}

// SignedOut forgets the cached list so the next sign-in reseeds it.
func (d *Directory) SignedOut() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.signedIn = false
	d.loaded = false
	d.contacts = nil
	return nil
}

// loadLocked caches and persists only while a user is signed in. Signed out,
// it serves a transient view so a late lookup cannot write contacts back
// after sign-out cleared them.
func (d *Directory) loadLocked() {
	if d.loaded {
		return
	}

	var stored []store.Contact
	err := d.db.Load(store.KeyContacts, &stored)
	if err == nil {
		d.contacts = stored
		d.loaded = d.signedIn
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		d.logger.Warn("stored contacts unusable, reseeding", zap.Error(err))
	}

	d.contacts = Demo(d.now())
	if !d.signedIn {
		return
	}
	d.loaded = true
	if err := d.db.Save(store.KeyContacts, d.contacts); err != nil {
		d.logger.Error("failed to persist demo contacts", zap.Error(err))
	}
}

func cloneContacts(in []store.Contact) []store.Contact {
	out := make([]store.Contact, len(in))
	for i, c := range in {
		if c.LastSeen != nil {
			t := *c.LastSeen
			c.LastSeen = &t
		}
		out[i] = c
	}
	return out
}
