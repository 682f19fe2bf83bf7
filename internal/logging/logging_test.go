package logging_test

import (
	"bytes"
	"testing"

	"github.com/hbjs97/flakenv/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, err := logging.New(false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel), "debug disabled by default")
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel), "warn enabled")

	verbose, err := logging.New(true)
	require.NoError(t, err)
	assert.True(t, verbose.Core().Enabled(zapcore.DebugLevel))
}

func TestNewWriter_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriter(&buf, false)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logging.NewWriter(&buf, true).Debug("detail")
	assert.Contains(t, buf.String(), "detail")
}
