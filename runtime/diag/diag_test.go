package diag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_WritesConsoleEncodedEntriesAtOrAboveMinLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zapcore.WarnLevel)

	logger.Infow("should not appear", "k", "v")
	logger.Warnw("queue saturated", "dropped", 3)

	out := buf.String()
	require.NotContains(t, out, "should not appear")
	require.Contains(t, out, "queue saturated")
	require.Contains(t, out, "dropped")
}

func TestNop_DiscardsEverything(t *testing.T) {
	logger := Nop()
	require.NotPanics(t, func() {
		logger.Errorw("ignored", "x", 1)
	})
}

func TestDefault_ReturnsSameInstance(t *testing.T) {
	require.Same(t, Default(), Default())
}
