package tui

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/contacts"
	"github.com/matheus3301/huddle/internal/identity"
	"github.com/matheus3301/huddle/internal/messages"
	"github.com/matheus3301/huddle/internal/session"
	"github.com/matheus3301/huddle/internal/status"
	"github.com/matheus3301/huddle/internal/store"
	"github.com/matheus3301/huddle/internal/tui/model"
	"github.com/matheus3301/huddle/internal/tui/ui"
)

// newTestApp builds an App over real stores without starting the event loop;
// the tests drive the handlers directly.
func newTestApp(t *testing.T) (*App, *messages.Store) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	b := bus.New()
	dir := contacts.New(db, nil)
	msgs := messages.New(db, b, nil, nil, messages.Options{DeliveryDelay: time.Hour, Contacts: dir})
	t.Cleanup(msgs.Close)
	auth := identity.NewSimulated(identity.Config{Delay: time.Millisecond})
	sess := session.New(db, b, status.NewMachine(b), auth, nil, dir, msgs)

	a := NewApp(model.NewViewModel(sess, dir, msgs), b, auth, nil, Options{Profile: "main"})
	t.Cleanup(a.cancel)
	return a, msgs
}

func signIn(t *testing.T, a *App) {
	t.Helper()
	require.NoError(t, a.vm.SignIn(context.Background()))
	a.handle(bus.NewEvent(bus.SessionSignedIn, identity.DemoUser))
}

func bodyItems(a *App) []tview.Primitive {
	items := make([]tview.Primitive, a.body.GetItemCount())
	for i := range items {
		items[i] = a.body.GetItem(i)
	}
	return items
}

func TestStartsOnSignIn(t *testing.T) {
	a, _ := newTestApp(t)
	a.showSignIn()

	assert.Equal(t, pageSignIn, a.pages.Current())
	assert.Equal(t, []string{"main", "Sign in"}, a.trail())
	assert.Contains(t, a.authURL, "accounts.google.com")

	a.runCommand(ParseCommand("chat bob"))
	msg := a.flash.Current()
	require.NotNil(t, msg)
	assert.Equal(t, ui.FlashWarn, msg.Level)
}

func TestChatCommandOpensThread(t *testing.T) {
	a, msgs := newTestApp(t)
	signIn(t, a)
	require.Equal(t, pageMain, a.pages.Current())

	_, err := msgs.Receive("2", "lunch?")
	require.NoError(t, err)

	a.runCommand(ParseCommand("chat bob"))

	c, ok := a.vm.Active()
	require.True(t, ok)
	assert.Equal(t, "2", c.ID)
	assert.Equal(t, []string{"main", "Contacts", "Bob Smith"}, a.trail())
	assert.Equal(t, viewThread, a.view())
	assert.Equal(t, 0, a.vm.Counts().Unread)

	items := bodyItems(a)
	require.Len(t, items, 2)
	assert.True(t, items[1] == tview.Primitive(a.thread))
}

func TestSingleLayoutSwitchesPanes(t *testing.T) {
	a, _ := newTestApp(t)
	signIn(t, a)
	a.layout = LayoutSingle
	a.applyLayout()

	items := bodyItems(a)
	require.Len(t, items, 1)
	assert.True(t, items[0] == tview.Primitive(a.list))

	a.openContact("3")
	items = bodyItems(a)
	require.Len(t, items, 1)
	assert.True(t, items[0] == tview.Primitive(a.thread))

	// Esc leaves the composer first, then the thread.
	require.True(t, a.back())
	assert.True(t, a.isOpen())
	require.True(t, a.back())
	assert.False(t, a.isOpen())
	assert.True(t, bodyItems(a)[0] == tview.Primitive(a.list))
}

func TestSearchCommandFiltersList(t *testing.T) {
	a, _ := newTestApp(t)
	signIn(t, a)

	a.runCommand(ParseCommand("search carol"))

	assert.Equal(t, "carol", a.vm.Query())
	assert.Equal(t, " Carol Williams", a.list.Table().GetCell(1, 0).Text)
	assert.Equal(t, "carol", a.list.Search().GetText())
}

func TestUnknownCommandWarns(t *testing.T) {
	a, _ := newTestApp(t)
	signIn(t, a)

	a.runCommand(ParseCommand("frobnicate"))

	msg := a.flash.Current()
	require.NotNil(t, msg)
	assert.Equal(t, "Unknown command: frobnicate", msg.Text)
}

func TestHelpOverlay(t *testing.T) {
	a, _ := newTestApp(t)
	signIn(t, a)

	a.runCommand(ParseCommand("help"))
	assert.Equal(t, pageHelp, a.pages.Current())
	assert.Contains(t, a.help.GetText(true), ":signout")

	require.True(t, a.back())
	assert.Equal(t, pageMain, a.pages.Current())
}

func TestSignOutReturnsToSignIn(t *testing.T) {
	a, _ := newTestApp(t)
	signIn(t, a)
	a.openContact("1")

	a.runCommand(ParseCommand("signout"))
	a.handle(bus.NewEvent(bus.SessionSignedOut, nil))

	assert.Equal(t, pageSignIn, a.pages.Base())
	assert.False(t, a.isOpen())
	_, ok := a.vm.User()
	assert.False(t, ok)
}
