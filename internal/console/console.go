// Package console implements component L's in-tree portion: the
// command table a driver-facing console dispatches into. The line
// editor/TTY driver itself is an external collaborator (spec.md's
// Console + Command Table is only specified at the interface level);
// this package carries the minimal command table and argv splitting
// needed to drive the section 8 scenarios against a simulated board.
package console

import (
	"github.com/mattn/go-runewidth"
	"github.com/mattn/go-shellwords"

	"github.com/village-kernel/village-go/internal/debug"
	"github.com/village-kernel/village-go/internal/util/linkedlist"
)

// Command is a registered console command (vk_command.rs's Cmd
// trait).
type Command interface {
	Name() string
	Execute(argv []string)
	Help() string
}

type commandEntry struct {
	name string
	cmd  Command
}

// Table is the kernel's Terminal capability: command registration and
// dispatch.
type Table struct {
	commands linkedlist.List[commandEntry]
	dbg      *debug.Debug
}

// New returns an empty Table.
func New(dbg *debug.Debug) *Table {
	return &Table{dbg: dbg}
}

// Setup logs readiness.
func (t *Table) Setup() {
	if t.dbg != nil {
		t.dbg.Info("Terminal setup completed!")
	}
}

// Exit clears every registered command.
func (t *Table) Exit() {
	t.commands.Clear()
}

// RegisterCmd adds cmd under its own name.
func (t *Table) RegisterCmd(cmd Command) {
	t.commands.PushBack(commandEntry{name: cmd.Name(), cmd: cmd})
}

// UnregisterCmd removes the command named name.
func (t *Table) UnregisterCmd(name string) {
	t.commands.RemoveMatch(func(e commandEntry) bool { return e.name == name })
}

// GetCmd returns the command registered under name.
func (t *Table) GetCmd(name string) (Command, bool) {
	e, ok := t.commands.Find(func(e commandEntry) bool { return e.name == name })
	if !ok {
		return nil, false
	}
	return e.cmd, true
}

// Dispatch splits line into shell-style tokens (quote-aware, the
// original's vk_args_parser.rs semantics) and executes the matching
// command, reporting whether a command was found.
func (t *Table) Dispatch(line string) bool {
	argv, err := shellwords.Parse(line)
	if err != nil || len(argv) == 0 {
		return false
	}
	cmd, ok := t.GetCmd(argv[0])
	if !ok {
		return false
	}
	cmd.Execute(argv[1:])
	return true
}

// PromptWidth measures the display width of prompt/echo text with
// full-width/zero-width rune awareness, the way a real line editor
// needs to before it can compute cursor columns.
func PromptWidth(s string) int {
	return runewidth.StringWidth(s)
}
