// monitor.go
package file

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监控输入文件，内容变化后在 debounce 时间内合并为一次回调
type FileMonitor struct {
	watcher  *fsnotify.Watcher
	files    map[string]*FileInfo // 绝对路径 -> 最近一次的文件信息
	debounce time.Duration
	mu       sync.Mutex
}

// NewFileMonitor 监控 paths 所在的目录，只关注 paths 本身。
// 监控目录而不是文件，编辑器的 rename+create 式保存也能被捕获。
func NewFileMonitor(debounce time.Duration, paths ...string) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	m := &FileMonitor{
		watcher:  watcher,
		files:    make(map[string]*FileInfo),
		debounce: debounce,
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		// 记录初始状态，启动时未变化的文件不触发
		m.files[abs], _ = Stat(abs)

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
		dirs[dir] = true
	}
	return m, nil
}

// Close 停止监控
func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}

// Watch 阻塞直到 ctx 结束或 watcher 出错。handler 在内容(md5)变化时调用，
// 同一批事件只调用一次
func (m *FileMonitor) Watch(ctx context.Context, handler func(changed []string)) error {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]bool)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			m.mu.Lock()
			_, tracked := m.files[name]
			m.mu.Unlock()
			if !tracked {
				continue
			}

			pending[name] = true
			if timer == nil {
				timer = time.NewTimer(m.debounce)
			} else {
				timer.Reset(m.debounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			var changed []string
			for name := range pending {
				if m.isChanged(name) {
					changed = append(changed, name)
				}
			}
			pending = make(map[string]bool)
			if len(changed) > 0 {
				sort.Strings(changed)
				handler(changed)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// isChanged 比较 md5，内容没变(只改了修改时间)不算变化
func (m *FileMonitor) isChanged(name string) bool {
	info, err := Stat(name)
	if err != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	last := m.files[name]
	m.files[name] = info
	return last == nil || last.Checksum != info.Checksum
}
