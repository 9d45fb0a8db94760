package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/polkiloo/snackbar/internal/config"
)

func TestNewDefaultsToInfo(t *testing.T) {
	l, err := New(&config.Config{})
	require.NoError(t, err)

	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}

func TestNewHonoursLevel(t *testing.T) {
	l, err := New(&config.Config{LogLevel: "debug"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	l, err = New(&config.Config{LogLevel: "error"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.WarnLevel))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&config.Config{LogLevel: "chatty"})
	require.Error(t, err)
}
