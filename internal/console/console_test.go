package console

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCommand struct {
	name     string
	received []string
}

func (c *fakeCommand) Name() string { return c.name }
func (c *fakeCommand) Execute(argv []string) {
	c.received = argv
}
func (c *fakeCommand) Help() string { return "help for " + c.name }

func TestRegisterDispatchUnregister(t *testing.T) {
	table := New(nil)
	cmd := &fakeCommand{name: "run"}
	table.RegisterCmd(cmd)

	require.True(t, table.Dispatch(`run a.bin "hello world"`))
	require.Equal(t, []string{"a.bin", "hello world"}, cmd.received)

	table.UnregisterCmd("run")
	require.False(t, table.Dispatch("run a.bin"))
}

func TestDispatchUnknownCommandReturnsFalse(t *testing.T) {
	table := New(nil)
	require.False(t, table.Dispatch("missing arg"))
}

func TestPromptWidthMeasuresDisplayColumns(t *testing.T) {
	require.Equal(t, 5, PromptWidth("hello"))
}
