package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFormat selects the output encoding.
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// Config is the logging configuration.
type Config struct {
	Level      string    `yaml:"level"`
	Format     LogFormat `yaml:"format"`
	Output     string    `yaml:"output"` // stdout, stderr, file
	Filename   string    `yaml:"filename"`
	MaxSize    int       `yaml:"max_size"` // MB per file
	MaxAge     int       `yaml:"max_age"`  // days
	MaxBackups int       `yaml:"max_backups"`
	Compress   bool      `yaml:"compress"`
}

// DefaultConfig is used until Init is called with real configuration.
var DefaultConfig = Config{
	Level:      "info",
	Format:     FormatJSON,
	Output:     "stdout",
	MaxSize:    100,
	MaxAge:     30,
	MaxBackups: 10,
	Compress:   true,
}

// Logger is the structured logging surface used across the engine.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// structuredLogger wraps a logrus entry.
type structuredLogger struct {
	entry *logrus.Entry
}

// New creates a logger from config.
func New(config Config) Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if config.Format == FormatText {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	}

	var output io.Writer
	switch config.Output {
	case "stderr":
		output = os.Stderr
	case "file":
		if config.Filename == "" {
			config.Filename = "logs/datafeed.log"
		}
		if err := os.MkdirAll(filepath.Dir(config.Filename), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
			output = os.Stdout
		} else {
			output = &lumberjack.Logger{
				Filename:   config.Filename,
				MaxSize:    config.MaxSize,
				MaxAge:     config.MaxAge,
				MaxBackups: config.MaxBackups,
				Compress:   config.Compress,
			}
		}
	default:
		output = os.Stdout
	}
	l.SetOutput(output)

	return &structuredLogger{entry: logrus.NewEntry(l)}
}

func (l *structuredLogger) Debug(msg string, fields ...interface{}) {
	l.log(logrus.DebugLevel, msg, fields...)
}

func (l *structuredLogger) Info(msg string, fields ...interface{}) {
	l.log(logrus.InfoLevel, msg, fields...)
}

func (l *structuredLogger) Warn(msg string, fields ...interface{}) {
	l.log(logrus.WarnLevel, msg, fields...)
}

func (l *structuredLogger) Error(msg string, fields ...interface{}) {
	l.log(logrus.ErrorLevel, msg, fields...)
}

func (l *structuredLogger) Fatal(msg string, fields ...interface{}) {
	l.log(logrus.FatalLevel, msg, fields...)
}

func (l *structuredLogger) WithField(key string, value interface{}) Logger {
	return &structuredLogger{entry: l.entry.WithField(key, value)}
}

func (l *structuredLogger) WithFields(fields map[string]interface{}) Logger {
	return &structuredLogger{entry: l.entry.WithFields(fields)}
}

// log accepts alternating key/value pairs after the message.
func (l *structuredLogger) log(level logrus.Level, msg string, fields ...interface{}) {
	entry := l.entry
	if len(fields) > 1 {
		fieldMap := make(map[string]interface{}, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			if key, ok := fields[i].(string); ok {
				fieldMap[key] = fields[i+1]
			}
		}
		entry = entry.WithFields(fieldMap)
	}
	entry.Log(level, msg)
}

var globalLogger Logger = New(DefaultConfig)

// Init replaces the global logger with one built from config.
func Init(config Config) {
	globalLogger = New(config)
}

// Global returns the process-wide logger.
func Global() Logger {
	return globalLogger
}

// Package-level helpers on the global logger.

func Debug(msg string, fields ...interface{}) { globalLogger.Debug(msg, fields...) }
func Info(msg string, fields ...interface{})  { globalLogger.Info(msg, fields...) }
func Warn(msg string, fields ...interface{})  { globalLogger.Warn(msg, fields...) }
func Error(msg string, fields ...interface{}) { globalLogger.Error(msg, fields...) }
func Fatal(msg string, fields ...interface{}) { globalLogger.Fatal(msg, fields...) }

func WithField(key string, value interface{}) Logger { return globalLogger.WithField(key, value) }

func WithFields(fields map[string]interface{}) Logger { return globalLogger.WithFields(fields) }
