package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "mergeviz", root.Use)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"run", "trace", "runs", "replay", "test"})
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	flags := NewRootCommand().PersistentFlags()

	verbose := flags.Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := flags.Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestRootCommand_RejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, NewRootCommand(), "runs", "--db", tempDB(t), "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommand_FlagDefaults(t *testing.T) {
	run, _, err := NewRootCommand().Find([]string{"run"})
	require.NoError(t, err)

	defaults := map[string]string{
		"values":    "[]",
		"random":    "0",
		"algorithm": "merge",
		"speed":     "1",
		"no-delay":  "false",
		"db":        "",
		"render":    "false",
		"hold":      "true",
	}
	for name, want := range defaults {
		f := run.Flags().Lookup(name)
		if assert.NotNil(t, f, "--%s", name) {
			assert.Equal(t, want, f.DefValue, "--%s", name)
		}
	}
	assert.NotNil(t, run.Flags().Lookup("seed"))
	assert.NotNil(t, run.Flags().Lookup("pacing"))
}

func TestStoreCommands_RequireDatabase(t *testing.T) {
	for _, name := range []string{"trace", "runs", "replay"} {
		_, err := execute(t, NewRootCommand(), name)
		if assert.Error(t, err, name) {
			assert.Contains(t, err.Error(), "required flag", name)
		}
	}
}
