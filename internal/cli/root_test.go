package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "kgc", cmd.Use)
	assert.Contains(t, cmd.Long, "receipt")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"load"}, {"fire"}, {"step"}, {"run"}, {"receipts"}, {"verify"}, {"test"},
		{"catalog", "check"}, {"catalog", "list"}, {"catalog", "resolve"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("catalog"))
}

func TestDataFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"fire", "step", "run"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.NotNil(t, sub.Flags().Lookup("data"), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "receipts", "--db", dbPath(t), "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestEnvironmentConfig(t *testing.T) {
	t.Setenv("KGC_LOG_LEVEL", "loud")
	_, err := execute(t, "receipts", "--db", dbPath(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestEnvironmentFormat(t *testing.T) {
	t.Setenv("KGC_FORMAT", "json")
	out, err := execute(t, "receipts", "--db", dbPath(t))
	require.NoError(t, err)
	assert.Equal(t, "ok", decode(t, out).Status)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "0.1.0 (ir 1)")
}
