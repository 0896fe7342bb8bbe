package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/matheus3301/huddle/internal/config"
	"github.com/matheus3301/huddle/internal/control"
	"github.com/matheus3301/huddle/internal/lock"
	"github.com/matheus3301/huddle/internal/profile"
)

func main() {
	profileFlag := pflag.StringP("profile", "p", "", "profile name (overrides config default)")
	jsonFlag := pflag.Bool("json", false, "output in JSON format")
	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// profiles needs no running instance.
	if args[0] == "profiles" {
		cmdProfiles(*jsonFlag)
		return
	}

	cfg, _ := config.LoadOrDefault(profile.ConfigPath())
	name := profile.Resolve(*profileFlag, cfg.DefaultProfile)
	if err := profile.ValidateName(name); err != nil {
		fail(err)
	}

	c, err := control.Dial(profile.SocketPath(name))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to huddle for profile %q: %v\n", name, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	if args[0] == "watch" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmdWatch(ctx, c, *jsonFlag)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		cmdStatus(ctx, c, *jsonFlag)
	case "contacts":
		cmdContacts(ctx, c, strings.Join(args[1:], " "), *jsonFlag)
	case "chats":
		cmdChats(ctx, c, *jsonFlag)
	case "messages":
		if len(args) < 2 {
			usageError("huddlectl messages <contact>")
		}
		cmdMessages(ctx, c, args[1], *jsonFlag)
	case "send", "receive":
		if len(args) < 3 {
			usageError("huddlectl " + args[0] + " <contact> <text...>")
		}
		cmdPost(ctx, c, args[0], args[1], strings.Join(args[2:], " "), *jsonFlag)
	case "read":
		if len(args) < 2 {
			usageError("huddlectl read <contact>")
		}
		cmdRead(ctx, c, args[1], *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: huddlectl [--profile NAME] [--json] <command>

Commands:
  status                      Show the session and store summary
  contacts [query]            List contacts, optionally filtered
  chats                       List chats, most recent first
  messages <contact>          Show a thread
  send <contact> <text...>    Send a message
  receive <contact> <text...> Simulate an incoming message
  read <contact>              Mark a thread as read
  watch                       Stream events until interrupted
  profiles                    List local profiles

<contact> is a contact id or a name.`)
}

func usageError(usage string) {
	fmt.Fprintln(os.Stderr, "usage: "+usage)
	os.Exit(1)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func cmdStatus(ctx context.Context, c *control.Client, jsonOut bool) {
	st, err := c.Status(ctx)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(st)
		return
	}
	fmt.Printf("Profile:  %s\n", st.Profile)
	fmt.Printf("Status:   %s\n", st.Status)
	if st.User != nil {
		fmt.Printf("User:     %s <%s>\n", st.User.Name, st.User.Email)
	}
	fmt.Printf("Contacts: %d\n", st.Contacts)
	fmt.Printf("Chats:    %d\n", st.Chats)
	fmt.Printf("Messages: %d (%d unread)\n", st.Messages, st.Unread)
	fmt.Printf("Uptime:   %s\n", (time.Duration(st.UptimeMS) * time.Millisecond).Round(time.Second))
}

func cmdContacts(ctx context.Context, c *control.Client, query string, jsonOut bool) {
	items, err := c.Contacts(ctx, query)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(items)
		return
	}
	if len(items) == 0 {
		fmt.Println("No contacts found.")
		return
	}
	now := time.Now()
	for _, ct := range items {
		presence := "online"
		if !ct.IsOnline {
			presence = "offline"
			if ct.LastSeen != nil {
				presence = "seen " + humanize.RelTime(*ct.LastSeen, now, "ago", "from now")
			}
		}
		fmt.Printf("%-4s %-20s %-28s %s\n", ct.ID, ct.Name, ct.Email, presence)
	}
}

func cmdChats(ctx context.Context, c *control.Client, jsonOut bool) {
	items, err := c.Chats(ctx)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(items)
		return
	}
	if len(items) == 0 {
		fmt.Println("No chats yet.")
		return
	}
	for _, ch := range items {
		last := ""
		if ch.LastMessage != nil {
			last = ch.LastMessage.Content
		}
		unread := ""
		if ch.UnreadCount > 0 {
			unread = fmt.Sprintf(" (%d)", ch.UnreadCount)
		}
		fmt.Printf("%-20s %-12s %s\n", ch.ContactName+unread, humanize.Time(ch.UpdatedAt), last)
	}
}

func cmdMessages(ctx context.Context, c *control.Client, contact string, jsonOut bool) {
	items, err := c.Messages(ctx, contact)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(items)
		return
	}
	if len(items) == 0 {
		fmt.Println("No messages.")
		return
	}
	for _, m := range items {
		fmt.Printf("%s  %-10s %-9s %s\n", m.Timestamp.Local().Format("Jan 02 15:04"), m.SenderID, m.Status, m.Content)
	}
}

func cmdPost(ctx context.Context, c *control.Client, verb, contact, text string, jsonOut bool) {
	post := c.Send
	if verb == "receive" {
		post = c.Receive
	}
	m, err := post(ctx, contact, text)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(m)
		return
	}
	fmt.Printf("%s %s (%s)\n", m.ID, m.Status, m.Timestamp.Local().Format("15:04:05"))
}

func cmdRead(ctx context.Context, c *control.Client, contact string, jsonOut bool) {
	n, err := c.MarkRead(ctx, contact)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(map[string]int{"updated": n})
		return
	}
	fmt.Printf("Marked %d message(s) read\n", n)
}

func cmdWatch(ctx context.Context, c *control.Client, jsonOut bool) {
	err := c.Watch(ctx, func(evt control.EventItem) error {
		if jsonOut {
			outputJSON(evt)
			return nil
		}
		at := time.UnixMilli(evt.OccurredAtUnixMS).Format("15:04:05")
		fmt.Printf("%s %-24s %s %s %s\n", at, evt.Kind, evt.ContactID, evt.MessageID, evt.Detail)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		fail(err)
	}
}

type profileItem struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
}

func cmdProfiles(jsonOut bool) {
	entries, err := os.ReadDir(filepath.Join(profile.BaseDir(), "profiles"))
	if err != nil && !os.IsNotExist(err) {
		fail(err)
	}
	var items []profileItem
	for _, e := range entries {
		if !e.IsDir() || profile.ValidateName(e.Name()) != nil {
			continue
		}
		dir := profile.Dir(e.Name())
		item := profileItem{Name: e.Name(), Path: dir}
		if _, err := os.Stat(profile.SocketPath(e.Name())); err == nil {
			item.PID = lock.Holder(dir)
			item.Running = item.PID != 0
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	if jsonOut {
		outputJSON(items)
		return
	}
	if len(items) == 0 {
		fmt.Println("No profiles found.")
		return
	}
	for _, p := range items {
		running := "stopped"
		if p.Running {
			running = fmt.Sprintf("running, pid %d", p.PID)
		}
		fmt.Printf("%-20s %s (%s)\n", p.Name, p.Path, running)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
