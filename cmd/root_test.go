package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"serve", "migrate", "task", "phase", "run", "worker", "report"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "vendor-pipeline", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestTaskCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range taskCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["create"])
	assert.True(t, names["list"])
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunCommand_Flags(t *testing.T) {
	for name, def := range map[string]string{"temporal": "false", "wait": "false", "from": "1"} {
		flag := runCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "run command should have --%s flag", name)
		assert.Equal(t, def, flag.DefValue)
	}
}

func TestReportCommand_Flags(t *testing.T) {
	flag := reportCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "json", flag.DefValue)

	out := reportCmd.Flags().ShorthandLookup("o")
	require.NotNil(t, out)
	assert.Equal(t, "out", out.Name)
}

func TestTaskListCommand_Flags(t *testing.T) {
	flag := taskListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
}

func TestPhaseCommand_Args(t *testing.T) {
	assert.Error(t, phaseCmd.Args(phaseCmd, []string{"1"}))
	assert.NoError(t, phaseCmd.Args(phaseCmd, []string{"1", "task-id"}))
}
