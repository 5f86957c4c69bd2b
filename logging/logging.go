// Package logging provides a configurable zerolog logger for the library and CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// TimeLayout is the default time layout for the logger.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// DefaultLevel is used when no log level is provided.
const DefaultLevel = "info"

var once sync.Once

// options holds the options for the logger.
type options struct {
	enableConsoleLog bool
	logLevelInput    string
	logFileName      string
	writers          []io.Writer
	soleWriter       io.Writer
	secrets          []string
}

// Option is a function that sets an option for the logger.
type Option func(*options)

// WithWriters adds additional writers to use for logging.
// This is useful for testing logging output.
func WithWriters(writers ...io.Writer) Option {
	return func(o *options) {
		o.writers = append(o.writers, writers...)
	}
}

// WithSoleWriter sets the sole writer to use for logging.
// This is useful for testing logging output.
func WithSoleWriter(writer io.Writer) Option {
	return func(o *options) {
		o.soleWriter = writer
	}
}

// WithFileName sets the log file name.
func WithFileName(logFileName string) Option {
	return func(o *options) {
		o.logFileName = logFileName
	}
}

// WithLevel sets the log level.
func WithLevel(logLevelInput string) Option {
	return func(o *options) {
		o.logLevelInput = logLevelInput
	}
}

// WithConsoleLog enables or disables console logging.
func WithConsoleLog(enabled bool) Option {
	return func(o *options) {
		o.enableConsoleLog = enabled
	}
}

// WithSecrets sets the secrets to redact in the logs.
// Forge tokens and private keys must never reach log sinks verbatim.
func WithSecrets(secrets []string) Option {
	return func(o *options) {
		o.secrets = secrets
	}
}

func defaultOptions() *options {
	return &options{
		enableConsoleLog: true,
		logLevelInput:    DefaultLevel,
	}
}

// Return a writer that writes to the specified file and redacts sensitive information.
func withRedactWriter(writer io.Writer, secrets []string) io.Writer {
	if len(secrets) == 0 {
		return writer
	}
	return &redactWriter{
		Writer:  writer,
		Secrets: secrets,
	}
}

// New initializes a new logger with the specified options.
func New(opts ...Option) (zerolog.Logger, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	writers := o.writers
	if o.soleWriter != nil {
		writers = []io.Writer{withRedactWriter(o.soleWriter, o.secrets)}
	} else {
		if o.logFileName != "" {
			err := os.MkdirAll(filepath.Dir(o.logFileName), 0700)
			if err != nil {
				return zerolog.Logger{}, err
			}
			err = os.WriteFile(o.logFileName, []byte{}, 0600)
			if err != nil {
				return zerolog.Logger{}, err
			}
			lumberLogger := &lumberjack.Logger{
				Filename:   o.logFileName,
				MaxSize:    50, // megabytes
				MaxBackups: 10,
				MaxAge:     30,
			}
			writers = append(writers, withRedactWriter(lumberLogger, o.secrets))
		}
		if o.enableConsoleLog {
			writers = append(writers, withRedactWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: TimeLayout}, o.secrets))
		}
	}

	if o.logLevelInput == "" {
		o.logLevelInput = DefaultLevel
	}
	logLevel, err := zerolog.ParseLevel(o.logLevelInput)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level: %w", err)
	}

	once.Do(func() {
		zerolog.TimeFieldFormat = TimeLayout
	})
	multiWriter := zerolog.MultiLevelWriter(writers...)
	logger := zerolog.New(multiWriter).Level(logLevel).With().Timestamp().Logger()
	return logger, nil
}

// MustNew initializes a new logger with the specified options.
// It panics if there is an error.
func MustNew(opts ...Option) zerolog.Logger {
	logger, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return logger
}
