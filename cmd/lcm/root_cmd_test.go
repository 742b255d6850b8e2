package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand(t *testing.T) {
	rootCmd, err := NewRootCommand()
	require.NoError(t, err)

	for _, flag := range []string{"model", "draw", "workers"} {
		assert.NotNil(t, rootCmd.Flags().Lookup(flag), flag)
	}
}

func TestPreRunRequiresModel(t *testing.T) {
	rootCmd, err := NewRootCommand()
	require.NoError(t, err)

	err = rootCmd.PreRun(rootCmd.Command, nil)
	assert.ErrorContains(t, err, "--model is required")
}

func TestPreRunPopulatesOpts(t *testing.T) {
	rootCmd, err := NewRootCommand()
	require.NoError(t, err)

	require.NoError(t, rootCmd.Flags().Set("model", "model.yaml"))
	require.NoError(t, rootCmd.Flags().Set("workers", "3"))

	require.NoError(t, rootCmd.PreRun(rootCmd.Command, nil))
	assert.Equal(t, "model.yaml", rootCmd.Opts.ModelPath)
	assert.Equal(t, 3, rootCmd.Opts.Workers)
}

func TestPreRunReadsEnvironment(t *testing.T) {
	t.Setenv("LCM_MODEL", "from_env.yaml")

	rootCmd, err := NewRootCommand()
	require.NoError(t, err)

	require.NoError(t, rootCmd.PreRun(rootCmd.Command, nil))
	assert.Equal(t, "from_env.yaml", rootCmd.Opts.ModelPath)
}
