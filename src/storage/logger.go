package storage

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel 定义日志级别类型
type LogLevel int

// 日志级别常量定义
const (
	DEBUG   LogLevel = iota // 调试信息
	INFO                    // 普通信息
	WARNING                 // 警告信息
	ERROR                   // 错误信息
	FATAL                   // 致命错误，由调用方决定是否退出
)

// Logger 日志记录器，底层使用 zap，同时写入日志文件和 stderr
type Logger struct {
	z     *zap.Logger
	sink  *fileSink
	level zap.AtomicLevel
	hub   *hub
}

// hub 保存订阅者通道列表，父子记录器共享
type hub struct {
	mu          sync.Mutex
	subscribers []chan string
}

// fileSink 可重新打开的文件输出
type fileSink struct {
	mu       sync.Mutex
	filename string
	file     *os.File
}

func (s *fileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return len(p), nil
	}
	return s.file.Write(p)
}

func (s *fileSink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	return s.file.Sync()
}

func (s *fileSink) open(filename string) error {
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		_ = s.file.Close()
	}
	s.file = file
	s.filename = filename
	return nil
}

func (s *fileSink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *fileSink) size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return 0, nil
	}
	info, err := s.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// NewLogger 创建新的日志记录器
// 参数:
//
//	filename: 日志文件路径，为空时只输出到 stderr
//	level: debug, info, warn, error
func NewLogger(filename, level string) (*Logger, error) {
	atomic := zap.NewAtomicLevel()
	if level != "" {
		if err := atomic.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	sink := &fileSink{}
	if filename != "" {
		if err := sink.open(filename); err != nil {
			return nil, err
		}
	}

	l := &Logger{sink: sink, level: atomic, hub: &hub{}}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(sink), atomic),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), atomic),
	)
	l.z = zap.New(core, zap.Hooks(l.hub.publish))
	return l, nil
}

// NewNop 返回不输出任何内容的日志记录器，用于测试
func NewNop() *Logger {
	return &Logger{z: zap.NewNop(), sink: &fileSink{}, level: zap.NewAtomicLevel(), hub: &hub{}}
}

// publish 将日志条目推送给所有订阅者
func (h *hub) publish(entry zapcore.Entry) error {
	msg := fmt.Sprintf("[%s] %s: %s",
		entry.Time.Format("2006-01-02 15:04:05"),
		entry.Level.CapitalString(),
		entry.Message)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- msg:
		default: // 通道已满则跳过
		}
	}
	return nil
}

// With 返回附带固定字段的子记录器，共享文件和订阅者
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		z:     l.z.With(fields...),
		sink:  l.sink,
		level: l.level,
		hub:   l.hub,
	}
}

// Zap 返回底层 zap 记录器
func (l *Logger) Zap() *zap.Logger {
	return l.z
}

// Close 刷新并关闭日志文件
func (l *Logger) Close() error {
	_ = l.z.Sync()
	return l.sink.close()
}

// Reopen 重新打开一个文件(收到 SIGHUP 时调用)
func (l *Logger) Reopen(filename string) error {
	return l.sink.open(filename)
}

// Log 记录日志方法
func (l *Logger) Log(level LogLevel, message string, fields ...zap.Field) {
	switch level {
	case DEBUG:
		l.z.Debug(message, fields...)
	case INFO:
		l.z.Info(message, fields...)
	case WARNING:
		l.z.Warn(message, fields...)
	case FATAL:
		l.z.Error(message, append(fields, zap.Bool("fatal", true))...)
	default:
		l.z.Error(message, fields...)
	}
}

// CheckRotate 文件超过 maxSize 字节时轮转
func (l *Logger) CheckRotate(maxSize int64) error {
	size, err := l.sink.size()
	if err != nil {
		return err
	}
	if maxSize > 0 && size > maxSize {
		return l.rotateLog()
	}
	return nil
}

func (l *Logger) rotateLog() error {
	filename := l.sink.filename
	if filename == "" {
		return nil
	}
	if err := l.sink.close(); err != nil {
		return err
	}
	rotated := fmt.Sprintf("%s.%s", filename, time.Now().Format("20060102150405"))
	if err := os.Rename(filename, rotated); err != nil {
		return err
	}
	return l.sink.open(filename)
}

// Subscribe 订阅日志消息
// 返回值:
//
//	<-chan string: 只读通道，用于接收日志消息
//	func(): 取消订阅
func (l *Logger) Subscribe() (<-chan string, func()) {
	h := l.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	// 创建带缓冲的通道(容量100)
	ch := make(chan string, 100)
	h.subscribers = append(h.subscribers, ch)

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, sub := range h.subscribers {
			if sub == ch {
				h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
				break
			}
		}
	}
	return ch, cancel
}

// String 实现LogLevel的String方法
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// 以下是快捷日志方法
func (l *Logger) Debug(msg string, fields ...zap.Field)   { l.Log(DEBUG, msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)    { l.Log(INFO, msg, fields...) }
func (l *Logger) Warning(msg string, fields ...zap.Field) { l.Log(WARNING, msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field)   { l.Log(ERROR, msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...zap.Field)   { l.Log(FATAL, msg, fields...) }
