package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	out := filepath.Join(t.TempDir(), "log.txt")
	l, err := NewLogger("ekf", "debug", out)
	require.NoError(t, err)
	l.Debugw("hello", "step", 1)
	_ = l.Sync()

	assert.True(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.FileExists(t, out)
}

func TestNewLoggerBadLevel(t *testing.T) {
	_, err := NewLogger("ekf", "loud")
	assert.Error(t, err)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l, err := NewLogger("x", "info")
	require.NoError(t, err)
	assert.Same(t, l, OrNop(l))
}
