package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Options selects the logger's format, destination and verbosity.
type Options struct {
	Format  string // "text" (default) or "json"
	File    string // rotate logs into this file instead of stderr
	Verbose bool   // debug level
	Quiet   bool   // warnings and errors only
}

// New builds a logrus logger. The returned closer releases the log file,
// if any, and is always non-nil.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()

	switch {
	case opts.Verbose:
		logger.SetLevel(logrus.DebugLevel)
	case opts.Quiet:
		logger.SetLevel(logrus.WarnLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if err := setFormatter(logger, opts); err != nil {
		return nil, nil, err
	}

	var closer io.Closer = nopCloser{}
	if opts.File == "" {
		logger.SetOutput(os.Stderr)
		return logger, closer, nil
	}

	if dir := filepath.Dir(opts.File); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	lj := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	logger.SetOutput(lj)
	return logger, lj, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func setFormatter(logger *logrus.Logger, opts Options) error {
	switch strings.ToLower(opts.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: timestampFormat,
			FullTimestamp:   true,
			DisableColors:   opts.File != "",
		})
	default:
		return fmt.Errorf("unsupported log format %q (want text or json)", opts.Format)
	}
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
