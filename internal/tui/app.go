package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/store"
	"github.com/matheus3301/huddle/internal/tui/keys"
	"github.com/matheus3301/huddle/internal/tui/model"
	"github.com/matheus3301/huddle/internal/tui/ui"
	"github.com/matheus3301/huddle/internal/tui/views"
)

const (
	pageSignIn  = "signin"
	pageMain    = "main"
	pageHelp    = "help"
	pageDetails = "details"

	viewContacts = "contacts"
	viewThread   = "thread"

	headerHeight = 6
	promptHeight = 3

	// Presence labels age, so the list is redrawn this often.
	presenceRefresh = 30 * time.Second
)

// AuthLinker builds the authorize URL shown on the sign-in screen.
type AuthLinker interface {
	AuthURL(state string) string
}

// Options configure the application.
type Options struct {
	Profile      string
	CompactWidth int
}

// App is the main TUI application shell. The navigation fields (layout
// onward) are only touched from the tview event goroutine.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	vm       *model.ViewModel
	bus      *bus.Bus
	logger   *zap.Logger
	opts     Options
	registry *keys.Registry
	flash    *ui.FlashModel
	authURL  string
	started  time.Time

	root     *tview.Flex
	pages    *ui.Pages
	body     *tview.Flex
	info     *ui.UserInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	flashBar *ui.FlashBar
	prompt   *ui.Prompt

	signIn  *views.SignInView
	list    *views.ContactList
	thread  *views.Thread
	empty   *views.EmptyState
	help    *views.HelpView
	details *views.ContactInfo

	layout     Layout
	promptOpen bool
	signingIn  bool
	signInErr  string
	lastSweep  time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(vm *model.ViewModel, b *bus.Bus, auth AuthLinker, logger *zap.Logger, opts Options) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		vm:       vm,
		bus:      b,
		logger:   logger,
		opts:     opts,
		registry: keys.NewRegistry(),
		flash:    ui.NewFlashModel(),
		authURL:  auth.AuthURL(uuid.NewString()),
		started:  time.Now(),
		pages:    ui.NewPages(),
		body:     tview.NewFlex(),
		info:     ui.NewUserInfo(theme),
		menu:     ui.NewMenu(theme),
		crumbs:   ui.NewCrumbs(theme),
		flashBar: ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		signIn:   views.NewSignInView(theme),
		list:     views.NewContactList(theme),
		thread:   views.NewThread(theme),
		empty:    views.NewEmptyState(theme),
		help:     views.NewHelpView(theme),
		details:  views.NewContactInfo(theme),
		layout:   LayoutSplit,
		ctx:      ctx,
		cancel:   cancel,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':', Label: ":",
		Description: "Command", Visible: true,
		Handler: a.openPrompt,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?', Label: "?",
		Description: "Help", Visible: true,
		Handler: a.showHelp,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Label: "q",
		Description: "Quit", Visible: true,
		Handler: a.app.Stop,
	})

	a.registry.AddView(pageSignIn, &keys.Action{
		Key: tcell.KeyEnter, Label: "Enter",
		Description: "Sign in with Google", Visible: true,
		Handler: a.startSignIn,
	})

	a.registry.AddView(viewContacts, &keys.Action{
		Key: tcell.KeyEnter, Label: "Enter",
		Description: "Open chat", Visible: true,
		Handler: func() { a.openContact(a.list.SelectedID()) },
	})
	a.registry.AddView(viewContacts, &keys.Action{
		Key: tcell.KeyRune, Rune: '/', Label: "/",
		Description: "Search", Visible: true,
		Handler: func() {
			a.app.SetFocus(a.list.Search())
			a.refreshChrome()
		},
	})

	a.registry.AddView(viewThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'i', Label: "i",
		Description: "Compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.thread.Composer().InputField) },
	})
	a.registry.AddView(viewThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'd', Label: "d",
		Description: "Details", Visible: true,
		Handler: a.showDetails,
	})
	a.registry.AddView(viewThread, &keys.Action{
		Key: tcell.KeyEscape, Label: "Esc",
		Description: "Back", Visible: true,
		Handler: func() { a.back() },
	})
}

func (a *App) setupCallbacks() {
	a.list.SetOnSelect(a.openContact)
	a.list.SetOnQuery(func(q string) {
		a.vm.SetQuery(q)
		a.refreshList()
	})
	a.list.Search().SetDoneFunc(func(tcell.Key) {
		a.app.SetFocus(a.list.Table())
		a.refreshChrome()
	})

	a.thread.SetOnSend(func(text string) error {
		if err := a.vm.Send(text); err != nil {
			a.flash.Err(err)
			return err
		}
		return nil
	})

	a.prompt.SetOnSubmit(func(text string) {
		a.closePrompt()
		a.runCommand(ParseCommand(text))
	})
	a.prompt.SetOnCancel(a.closePrompt)

	a.pages.SetOnChange(func([]string) { a.refreshChrome() })
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		AddItem(ui.NewLogo(a.theme), ui.LogoWidth, 0, false).
		AddItem(a.info, 0, 2, false).
		AddItem(a.menu, 0, 1, false)

	a.pages.AddPage(pageSignIn, a.signIn, true, false)
	a.pages.AddPage(pageMain, a.body, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)
	a.pages.AddPage(pageDetails, a.details, true, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, headerHeight, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.capture)
	a.app.SetBeforeDrawFunc(a.checkWidth)
}

func (a *App) capture(ev *tcell.EventKey) *tcell.EventKey {
	// The prompt handles its own Enter and Esc.
	if a.promptOpen {
		return ev
	}

	if ev.Key() == tcell.KeyEscape {
		if a.back() {
			return nil
		}
		return ev
	}

	// Let text input widgets handle all other keys normally.
	if _, ok := a.app.GetFocus().(*tview.InputField); ok {
		return ev
	}

	if a.registry.HandleEvent(a.view(), ev) {
		return nil
	}
	return ev
}

// view names the binding scope for the focused widget.
func (a *App) view() string {
	if a.pages.Current() != pageMain {
		return a.pages.Current()
	}
	if a.thread.HasFocus() {
		return viewThread
	}
	return viewContacts
}

// checkWidth runs inside tview's draw, so layout changes are queued rather
// than applied in place.
func (a *App) checkWidth(screen tcell.Screen) bool {
	w, _ := screen.Size()
	if l := layoutFor(w, a.opts.CompactWidth); l != a.layout {
		a.layout = l
		go a.app.QueueUpdateDraw(func() {
			a.applyLayout()
			if a.pages.Current() == pageMain {
				a.restoreFocus()
			}
		})
	}
	return false
}

func (a *App) applyLayout() {
	_, open := a.vm.Active()
	a.body.Clear()
	switch {
	case a.layout == LayoutSplit && open:
		a.body.AddItem(a.list, 0, 2, false).
			AddItem(a.thread, 0, 3, true)
	case a.layout == LayoutSplit:
		a.body.AddItem(a.list, 0, 2, true).
			AddItem(a.empty, 0, 3, false)
	case open:
		a.body.AddItem(a.thread, 0, 1, true)
	default:
		a.body.AddItem(a.list, 0, 1, true)
	}
}

// back handles Esc. It returns false when there is nowhere to go back to.
func (a *App) back() bool {
	switch a.pages.Current() {
	case pageHelp, pageDetails:
		a.pages.Pop()
		a.restoreFocus()
		return true
	case pageMain:
		switch {
		case a.list.Search().HasFocus():
			a.app.SetFocus(a.list.Table())
		case a.thread.Composer().HasFocus():
			a.app.SetFocus(a.thread.Messages())
		case a.isOpen():
			a.closeThread()
		default:
			return false
		}
		a.refreshChrome()
		return true
	}
	return false
}

func (a *App) isOpen() bool {
	_, ok := a.vm.Active()
	return ok
}

// restoreFocus focuses the natural widget of the page on top.
func (a *App) restoreFocus() {
	switch a.pages.Current() {
	case pageSignIn:
		a.app.SetFocus(a.signIn)
	case pageMain:
		if a.isOpen() {
			a.app.SetFocus(a.thread.Composer().InputField)
		} else {
			a.app.SetFocus(a.list.Table())
		}
	case pageHelp:
		a.app.SetFocus(a.help)
	case pageDetails:
		a.app.SetFocus(a.details)
	}
	a.refreshChrome()
}

func (a *App) showSignIn() {
	a.signIn.Update(a.authURL, a.signingIn, a.signInErr)
	a.pages.Reset(pageSignIn)
	a.restoreFocus()
}

func (a *App) showMain() {
	a.list.SetQuery(a.vm.Query())
	a.applyLayout()
	a.refreshList()
	a.refreshThread()
	a.pages.Reset(pageMain)
	a.restoreFocus()
}

func (a *App) showHelp() {
	a.help.Update(a.helpSections())
	a.pages.Push(pageHelp)
	a.restoreFocus()
}

func (a *App) showDetails() {
	c, ok := a.vm.Active()
	if !ok {
		return
	}
	chat, _ := a.vm.Chat(c.ID)
	u, _ := a.vm.User()
	a.details.Update(c, chat, u.ID, time.Now())
	a.pages.Push(pageDetails)
	a.restoreFocus()
}

func (a *App) openContact(id string) {
	if id == "" {
		return
	}
	if _, ok := a.vm.Open(id); !ok {
		a.flash.Warn("Unknown contact " + id)
		a.refreshChrome()
		return
	}
	if a.pages.Current() != pageMain {
		a.pages.Reset(pageMain)
	}
	a.applyLayout()
	a.refreshThread()
	a.refreshList()
	a.restoreFocus()
}

func (a *App) closeThread() {
	a.vm.Close()
	a.applyLayout()
	a.refreshList()
	a.restoreFocus()
}

func (a *App) openPrompt() {
	a.promptOpen = true
	a.root.ResizeItem(a.prompt, promptHeight, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) closePrompt() {
	a.promptOpen = false
	a.root.ResizeItem(a.prompt, 0, 0)
	a.restoreFocus()
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "":
		return
	case CmdHelp:
		a.showHelp()
		return
	case CmdQuit:
		a.app.Stop()
		return
	}

	if _, ok := a.vm.User(); !ok {
		a.flash.Warn("Sign in first")
		a.refreshChrome()
		return
	}

	switch cmd.Name {
	case CmdSearch:
		a.vm.SetQuery(cmd.Args)
		a.list.SetQuery(cmd.Args)
		if a.layout == LayoutSingle && a.isOpen() {
			a.vm.Close()
		}
		a.showMain()
		a.app.SetFocus(a.list.Table())
	case CmdChat:
		if cmd.Args == "" {
			a.flash.Warn("Usage: chat <name>")
			break
		}
		c, ok := a.vm.Resolve(cmd.Args)
		if !ok {
			a.flash.Warn(fmt.Sprintf("No contact matches %q", cmd.Args))
			break
		}
		a.openContact(c.ID)
	case CmdReceive:
		if err := a.vm.Receive(cmd.Args); err != nil {
			a.flash.Err(err)
		}
	case CmdSignOut:
		if err := a.vm.SignOut(); err != nil {
			a.logger.Error("sign out", zap.Error(err))
			a.flash.Err(err)
		}
	default:
		a.flash.Warn("Unknown command: " + cmd.Name)
	}
	a.refreshChrome()
}

func (a *App) startSignIn() {
	if a.signingIn {
		return
	}
	a.signingIn, a.signInErr = true, ""
	a.signIn.Update(a.authURL, true, "")

	go func() {
		err := a.vm.SignIn(a.ctx)
		if err == nil {
			// The signed_in event switches screens.
			return
		}
		a.logger.Warn("sign in failed", zap.Error(err))
		a.flash.Err(err)
		a.app.QueueUpdateDraw(func() {
			a.signingIn, a.signInErr = false, err.Error()
			a.signIn.Update(a.authURL, false, a.signInErr)
		})
	}()
}

// handle applies one bus event on the event goroutine.
func (a *App) handle(evt bus.Event) {
	switch evt.Kind {
	case bus.SessionSignedIn:
		a.signingIn, a.signInErr = false, ""
		a.showMain()
		if u, ok := evt.Payload.(store.User); ok {
			a.flash.Info("Signed in as " + u.Name)
		}
	case bus.SessionSignedOut:
		a.vm.Reset()
		a.showSignIn()
		a.flash.Info("Signed out")
	case bus.StorePersistFailed:
		if pf, ok := evt.Payload.(bus.PersistFailure); ok {
			a.flash.Warn(fmt.Sprintf("Could not save %s: %v", pf.Key, pf.Err))
		}
	default:
		if a.vm.Observe(evt) {
			a.refreshThread()
		}
	}
	a.refreshList()
	a.refreshChrome()
}

func (a *App) refreshList() {
	if a.pages.Base() != pageMain {
		return
	}
	u, _ := a.vm.User()
	a.list.Update(a.vm.Rows(), u.ID, a.vm.Query(), time.Now())
}

func (a *App) refreshThread() {
	c, ok := a.vm.Active()
	if !ok {
		return
	}
	u, _ := a.vm.User()
	a.thread.Update(c, a.vm.Thread(), u.ID, time.Now())
}

func (a *App) refreshChrome() {
	u, _ := a.vm.User()
	counts := a.vm.Counts()
	a.info.Update(ui.UserData{
		Profile:  a.opts.Profile,
		Name:     u.Name,
		Email:    u.Email,
		Status:   string(a.vm.Status()),
		Contacts: counts.Contacts,
		Chats:    counts.Chats,
		Unread:   counts.Unread,
		Uptime:   time.Since(a.started),
	})
	a.menu.Update(a.registry.Hints(a.view()))
	a.crumbs.Update(a.trail())
	a.flashBar.Update(a.flash.Current())
}

func (a *App) trail() []string {
	trail := []string{a.opts.Profile}
	switch a.pages.Base() {
	case pageSignIn:
		trail = append(trail, a.signIn.Name())
	case pageMain:
		trail = append(trail, a.list.Name())
		if a.isOpen() {
			trail = append(trail, a.thread.Name())
		}
	}
	switch a.pages.Current() {
	case pageHelp:
		trail = append(trail, a.help.Name())
	case pageDetails:
		trail = append(trail, a.details.Name())
	}
	return trail
}

func (a *App) helpSections() []views.HelpSection {
	global := append(a.registry.Hints(""),
		ui.MenuHint{Key: "Esc", Description: "Back"},
		ui.MenuHint{Key: "Ctrl-C", Description: "Quit immediately"},
	)
	return []views.HelpSection{
		{Title: "Global Keys", Hints: global},
		{Title: "Sign in", Hints: a.registry.ViewHints(pageSignIn)},
		{Title: "Contacts", Hints: a.registry.ViewHints(viewContacts)},
		{Title: "Chat", Hints: append(a.registry.ViewHints(viewThread),
			ui.MenuHint{Key: "Enter", Description: "Send message (in composer)"})},
		{Title: "Commands (: mode)", Hints: []ui.MenuHint{
			{Key: ":search <query>", Description: "Filter contacts by name or email"},
			{Key: ":chat <name>", Description: "Open a chat by contact id or name"},
			{Key: ":receive <text>", Description: "Simulate a reply in the open chat"},
			{Key: ":signout", Description: "Sign out and clear local data"},
			{Key: ":help", Description: "Show this help"},
			{Key: ":quit", Description: "Quit"},
		}},
	}
}

// watch forwards bus events and timers to the event goroutine.
func (a *App) watch() {
	events, unsub := a.bus.Subscribe("", 256)
	defer unsub()
	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case evt := <-events:
			a.app.QueueUpdateDraw(func() { a.handle(evt) })
		case <-a.flash.Watch():
			a.app.QueueUpdateDraw(a.refreshChrome)
		case now := <-tick.C:
			a.app.QueueUpdateDraw(func() { a.tick(now) })
		}
	}
}

func (a *App) tick(now time.Time) {
	if now.Sub(a.lastSweep) >= presenceRefresh {
		a.lastSweep = now
		a.refreshList()
		a.refreshThread()
	}
	a.refreshChrome()
}

// Run starts the TUI and blocks until the user quits.
func (a *App) Run() error {
	defer a.cancel()

	if _, ok := a.vm.User(); ok {
		a.showMain()
	} else {
		a.showSignIn()
	}
	a.lastSweep = time.Now()
	go a.watch()

	return a.app.Run()
}

// Stop shuts the TUI down from another goroutine.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
