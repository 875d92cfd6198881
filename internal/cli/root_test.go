package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"server", "worker", "migrate"}, names)

	flag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Empty(t, flag.DefValue)
}

func TestRootCommand_UnknownMode(t *testing.T) {
	t.Setenv("MODE", "bogus")
	cmd := NewRootCommand()
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode: bogus")
}

func TestServerCommand_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"server"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestMigrateCommand_Flags(t *testing.T) {
	cmd := NewMigrateCommand(&RootOptions{})
	require.NotNil(t, cmd.Flags().Lookup("down"))
}
