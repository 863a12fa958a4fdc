package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes leveled, printf style messages to the terminal, a rotated
// log file or any io.Writer. Children created with Named share the output.
type Logger struct {
	mu     *sync.Mutex
	writer io.Writer
	closer io.Closer
	exit   func(int)

	name       string
	level      Level
	timeFormat string
	color      bool
	json       bool
}

type Rotation struct {
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

type Option func(*Logger) error

type entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Service   string `json:"service,omitempty"`
	Message   string `json:"message"`
}

func WithLevel(level Level) Option {
	return func(l *Logger) error {
		if level < Debug || level > Fatal {
			return fmt.Errorf("invalid log level %d", level)
		}
		l.level = level
		return nil
	}
}

// WithWriter replaces the terminal output. Colors are disabled.
func WithWriter(w io.Writer) Option {
	return func(l *Logger) error {
		if w == nil {
			return fmt.Errorf("log writer is nil")
		}
		l.writer = w
		l.color = false
		return nil
	}
}

// WithFile additionally writes every message into file, rotated by lumberjack.
// A nil rotation uses 128MB files, 5 backups and 16 days.
func WithFile(file string, rotation *Rotation) Option {
	return func(l *Logger) error {
		if file == "" {
			return nil
		}
		if rotation == nil {
			rotation = &Rotation{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
			}
		}

		rotated := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    rotation.MaxSize,
			MaxBackups: rotation.MaxBackups,
			MaxAge:     rotation.MaxAge,
			Compress:   rotation.Compress,
		}
		l.writer = io.MultiWriter(l.writer, rotated)
		l.closer = rotated
		l.color = false
		return nil
	}
}

func WithJSON() Option {
	return func(l *Logger) error {
		l.json = true
		return nil
	}
}

func WithoutColor() Option {
	return func(l *Logger) error {
		l.color = false
		return nil
	}
}

func New(name string, opts ...Option) (*Logger, error) {
	l := &Logger{
		mu:         &sync.Mutex{},
		writer:     os.Stdout,
		exit:       os.Exit,
		name:       name,
		level:      Info,
		timeFormat: "2006-01-02 15:04:05",
		color:      true,
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Discard returns a logger that drops every message.
func Discard() *Logger {
	return &Logger{
		mu:         &sync.Mutex{},
		writer:     io.Discard,
		exit:       os.Exit,
		level:      Fatal + 1,
		timeFormat: time.RFC3339,
	}
}

func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) Name() string {
	return l.name
}

func (l *Logger) log(level Level, msg string, args ...any) {
	if level < l.level {
		return
	}

	timestamp := time.Now().Format(l.timeFormat)
	message := fmt.Sprintf(msg, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.json {
		jsonBytes, _ := json.Marshal(entry{
			Timestamp: timestamp,
			Level:     level.String(),
			Service:   l.name,
			Message:   message,
		})
		fmt.Fprintf(l.writer, "%s\n", jsonBytes)
	} else {
		prefix := fmt.Sprintf("[%s] %-5s", timestamp, level)
		if l.name != "" {
			prefix = fmt.Sprintf("%s [%s]", prefix, l.name)
		}

		if l.color {
			fmt.Fprintf(l.writer, "%s%s %s%s\n", level.color(), prefix, message, colorReset)
		} else {
			fmt.Fprintf(l.writer, "%s %s\n", prefix, message)
		}
	}

	if level == Fatal {
		l.exit(1)
	}
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(Debug, msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log(Info, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(Warn, msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(Error, msg, args...)
}

func (l *Logger) Fatal(msg string, args ...any) {
	l.log(Fatal, msg, args...)
}

// Named returns a child logger whose name is appended to the parent's.
func (l *Logger) Named(name string) *Logger {
	child := *l
	if l.name != "" {
		child.name = fmt.Sprintf("%s/%s", l.name, name)
	} else {
		child.name = name
	}
	child.closer = nil

	return &child
}

// Close releases the rotated log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}

	return l.closer.Close()
}
