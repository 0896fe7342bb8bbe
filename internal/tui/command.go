package tui

import "strings"

// Command names understood by the prompt.
const (
	CmdSearch  = "search"
	CmdChat    = "chat"
	CmdReceive = "receive"
	CmdSignOut = "signout"
	CmdHelp    = "help"
	CmdQuit    = "quit"
)

var commandAliases = map[string]string{
	"s":      CmdSearch,
	"find":   CmdSearch,
	"c":      CmdChat,
	"open":   CmdChat,
	"recv":   CmdReceive,
	"logout": CmdSignOut,
	"h":      CmdHelp,
	"q":      CmdQuit,
	"exit":   CmdQuit,
}

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':'). Aliases
// resolve to their canonical name.
func ParseCommand(input string) Command {
	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	name = strings.ToLower(name)
	if canonical, ok := commandAliases[name]; ok {
		name = canonical
	}
	return Command{Name: name, Args: strings.TrimSpace(args)}
}
