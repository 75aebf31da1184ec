package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileMonitor_Watch(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	train := writeFile(t, dir, "train.csv", []byte("a\n1\n"))
	other := writeFile(t, dir, "other.csv", []byte("a\n1\n"))

	m, err := NewFileMonitor(200*time.Millisecond, train)
	require.NoError(t, err)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- m.Watch(ctx, func(changed []string) { changes <- changed })
	}()

	// 未监控的文件不触发
	require.NoError(t, os.WriteFile(other, []byte("a\n2\n"), 0644))
	// 多次写入合并为一次回调
	require.NoError(t, os.WriteFile(train, []byte("a\n2\n"), 0644))
	require.NoError(t, os.WriteFile(train, []byte("a\n3\n"), 0644))

	select {
	case changed := <-changes:
		assert.Equal(t, []string{train}, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	// 内容不变只更新修改时间，不触发
	now := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(train, now, now))
	require.NoError(t, os.WriteFile(train, []byte("a\n3\n"), 0644))
	select {
	case changed := <-changes:
		t.Fatalf("unexpected change %v", changed)
	case <-time.After(600 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestNewFileMonitor_MissingDir(t *testing.T) {
	_, err := NewFileMonitor(time.Millisecond, filepath.Join(t.TempDir(), "nope", "train.csv"))
	assert.Error(t, err)
}
