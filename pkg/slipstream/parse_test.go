package slipstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRunDefaults(t *testing.T) {
	cmd, config, err := Parse([]string{"run"})
	require.NoError(t, err)
	assert.Equal(t, "run", cmd.Name())
	assert.Equal(t, "8080", config.ServerPort)
	assert.Equal(t, "memory", config.StoreBackend)
}

func TestParseMigrateWithBackend(t *testing.T) {
	cmd, config, err := Parse([]string{"-store", "postgres", "migrate"})
	require.NoError(t, err)
	assert.Equal(t, "migrate", cmd.Name())
	assert.Equal(t, "postgres", config.StoreBackend)
	assert.NotEmpty(t, config.PostgresDSN)
}

func TestParsePortFlag(t *testing.T) {
	_, config, err := Parse([]string{"-port", "9999", "run"})
	require.NoError(t, err)
	assert.Equal(t, "9999", config.ServerPort)
}

func TestParseRequiresSubcommand(t *testing.T) {
	_, _, err := Parse(nil)
	require.Error(t, err)
}

func TestParseRejectsUnknownCommand(t *testing.T) {
	_, _, err := Parse([]string{"frobnicate"})
	require.Error(t, err)
}

func TestParseRejectsInvalidBackend(t *testing.T) {
	_, _, err := Parse([]string{"-store", "redis", "run"})
	require.Error(t, err)
}
