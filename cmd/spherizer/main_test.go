package main

import (
	"testing"

	"github.com/guidoenr/spherizer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckBackendRejectsMissingSDL(t *testing.T) {
	assert.ErrorIs(t, checkBackend(config.DisplayConfig{SDL: true}, false), errNoSDL)
	assert.NoError(t, checkBackend(config.DisplayConfig{SDL: true}, true))
	assert.NoError(t, checkBackend(config.DisplayConfig{}, false))
}

func TestFlagsBindToConfigKeys(t *testing.T) {
	cmd := newRootCmd()
	for name := range flagKeys {
		require.NotNil(t, cmd.Flags().Lookup(name), "flag %s", name)
	}
}
