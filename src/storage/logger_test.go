package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogger_WritesFileAndSubscribers(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(filename, "debug")
	require.NoError(t, err)
	defer logger.Close()

	ch, cancel := logger.Subscribe()
	defer cancel()

	logger.With(zap.String("run_id", "r1")).Info("清洗完成")

	select {
	case msg := <-ch:
		assert.Contains(t, msg, "INFO: 清洗完成")
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive log entry")
	}

	require.NoError(t, logger.Close())
	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Contains(t, string(data), "清洗完成")
	assert.Contains(t, string(data), "run_id")
}

func TestLogger_LevelFilter(t *testing.T) {
	logger, err := NewLogger("", "warn")
	require.NoError(t, err)

	ch, cancel := logger.Subscribe()
	defer cancel()

	logger.Debug("ignored")
	logger.Info("ignored")
	logger.Warning("kept")

	select {
	case msg := <-ch:
		assert.True(t, strings.HasSuffix(msg, "WARN: kept"), msg)
	case <-time.After(time.Second):
		t.Fatal("warning was not published")
	}
	assert.Len(t, ch, 0)
}

func TestLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger("", "loud")
	require.Error(t, err)
}

func TestLogger_CheckRotate(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "app.log")
	logger, err := NewLogger(filename, "info")
	require.NoError(t, err)
	defer logger.Close()

	for i := 0; i < 20; i++ {
		logger.Info("rotate me please")
	}
	require.NoError(t, logger.CheckRotate(64))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	logger.Info("after rotate")
	require.NoError(t, logger.Close())
	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Contains(t, string(data), "after rotate")
	assert.NotContains(t, string(data), "rotate me please")
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "WARNING", WARNING.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}
