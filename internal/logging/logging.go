// Package logging provides centralized logging functionality using logrus.
// It builds per-client loggers from an explicit configuration value and
// keeps a few convenience helpers for the command-line front-end.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// programName is used as a field in all log entries for identification
const programName = "rubrik_polaris"

// validLevels maps the accepted level names to logrus levels.
// "critical" has no logrus equivalent; it filters like fatal but the
// logger never exits the process on its own.
var validLevels = map[string]log.Level{
	"debug":    log.DebugLevel,
	"critical": log.FatalLevel,
	"error":    log.ErrorLevel,
	"warning":  log.WarnLevel,
	"info":     log.InfoLevel,
}

// Options is the logging configuration passed to a client at construction.
type Options struct {
	// Enabled turns log output on; a disabled logger discards everything
	Enabled bool

	// Level is one of debug, critical, error, warning, info
	Level string

	// LogName is an optional log file written in addition to stderr
	LogName string
}

// ValidLevels returns the accepted level names in sorted order.
func ValidLevels() []string {
	names := make([]string, 0, len(validLevels))
	for name := range validLevels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseLevel converts a level name into a logrus level. An empty name is
// treated as "debug".
func ParseLevel(name string) (log.Level, error) {
	if name == "" {
		return log.DebugLevel, nil
	}
	lvl, ok := validLevels[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("'%s' is not a valid logging level, valid choices are %s",
			name, strings.Join(ValidLevels(), ", "))
	}
	return lvl, nil
}

// New builds a logger from opts. It never touches the logrus standard logger,
// so two clients with different options do not interfere.
func New(opts Options) (*log.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})
	logger.SetLevel(lvl)
	logger.ExitFunc = func(int) {}

	if !opts.Enabled {
		logger.SetOutput(io.Discard)
		return logger, nil
	}

	if opts.LogName == "" {
		logger.SetOutput(os.Stderr)
		return logger, nil
	}

	logFile, err := os.OpenFile(opts.LogName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, logFile))
	return logger, nil
}

// NewNop returns a logger that discards all output.
func NewNop() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

// LogInfo logs an informational message with the programName field.
func LogInfo(msg string) {
	log.WithFields(log.Fields{"job": programName}).Info(msg)
}

// LogError logs the provided error message with the programName field.
// This function should be used to log recoverable errors that do not terminate the program.
func LogError(msg string) {
	log.WithFields(log.Fields{"job": programName}).Error(msg)
}

// PrepareLogs configures the standard logger used by the command-line
// front-end: JSON output to stderr and, if logName is set, to that file.
func PrepareLogs(logName string, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.JSONFormatter{})

	if logName == "" {
		log.SetOutput(os.Stderr)
		return nil
	}

	logFile, err := os.OpenFile(logName, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %v", err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	return nil
}
