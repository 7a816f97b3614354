package chat

import (
	"strings"
)

// Command is a slash command typed at the prompt.
type Command struct {
	Name string
	Arg  string
}

const (
	cmdNew    = "new"
	cmdLoad   = "load"
	cmdExport = "export"
	cmdClose  = "close"
	cmdQuit   = "quit"
	cmdHelp   = "help"
)

const helpText = "/new start over, /load <id> open a conversation, /export [dir] save the specification, /close hide the specification, /quit exit"

// ParseCommand reports whether line is a slash command and splits it.
func ParseCommand(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Command{}, false
	}
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return Command{Name: cmdHelp}, true
	}
	name := strings.ToLower(fields[0])
	switch name {
	case "q", "exit":
		name = cmdQuit
	case "?":
		name = cmdHelp
	}
	return Command{Name: name, Arg: strings.Join(fields[1:], " ")}, true
}
