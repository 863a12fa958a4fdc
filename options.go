package flatfs

import "github.com/mwantia/flatfs/log"

type Options struct {
	Logger        *log.Logger
	LogLevel      log.Level
	LogFile       string
	LogJSON       bool
	NoTerminalLog bool
	LossyRename   bool
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		LogLevel: log.Info,
	}
}

// WithLogger uses logger instead of creating one from the log options.
func WithLogger(logger *log.Logger) Option {
	return func(opts *Options) error {
		opts.Logger = logger
		return nil
	}
}

func WithLogLevel(level log.Level) Option {
	return func(opts *Options) error {
		opts.LogLevel = level
		return nil
	}
}

func WithLogFile(file string) Option {
	return func(opts *Options) error {
		opts.LogFile = file
		return nil
	}
}

func WithJSONLog() Option {
	return func(opts *Options) error {
		opts.LogJSON = true
		return nil
	}
}

func WithoutTerminalLog() Option {
	return func(opts *Options) error {
		opts.NoTerminalLog = true
		return nil
	}
}

// WithLossyRename lets Rename replace a destination file that is still open.
func WithLossyRename() Option {
	return func(opts *Options) error {
		opts.LossyRename = true
		return nil
	}
}
