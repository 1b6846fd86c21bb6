package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rigbuild/rig/internal/config"
	"github.com/rigbuild/rig/internal/logging"
)

// logFileWriter holds the log file writer for cleanup during shutdown.
var logFileWriter io.WriteCloser //nolint:gochecknoglobals // Needed for cleanup

// zerologGlobalMu protects concurrent writes to the zerolog global logger.
var zerologGlobalMu sync.Mutex //nolint:gochecknoglobals // Protects zerolog global

// InitLogger creates a zerolog.Logger based on verbosity flags and the
// loaded log config.
//
// Log levels:
//   - verbose=true: Debug level
//   - quiet=true: Warn level
//   - default: Info level
//
// Console output goes to stderr: a console writer on a TTY without
// NO_COLOR, JSON otherwise. When cfg.File is set the logger also writes
// there with rotation; a file setup failure degrades to console-only.
func InitLogger(verbose, quiet bool, cfg config.LogConfig) zerolog.Logger {
	level := selectLevel(verbose, quiet)
	hook := logging.NewSensitiveDataHook()
	console := selectOutput()

	writer := console
	if cfg.File != "" {
		fileWriter, err := createLogFileWriter(cfg)
		if err == nil {
			logFileWriter = fileWriter
			writer = zerolog.MultiLevelWriter(console, fileWriter)
		}
	}

	logger := zerolog.New(writer).Level(level).Hook(hook).With().Timestamp().Logger()
	setGlobalLogger(logger)
	return logger
}

// InitLoggerWithWriter creates a logger with a custom writer. Primarily
// for tests.
func InitLoggerWithWriter(verbose, quiet bool, w io.Writer) zerolog.Logger {
	level := selectLevel(verbose, quiet)
	hook := logging.NewSensitiveDataHook()
	logger := zerolog.New(w).Level(level).Hook(hook).With().Timestamp().Logger()
	setGlobalLogger(logger)
	return logger
}

// setGlobalLogger points the zerolog package-level logger at the CLI
// logger so stray log.Info() calls share formatting and filtering.
func setGlobalLogger(cliLogger zerolog.Logger) {
	zerologGlobalMu.Lock()
	defer zerologGlobalMu.Unlock()
	log.Logger = cliLogger
}

// CloseLogFile closes the log file writer if one was opened. Called during
// shutdown.
func CloseLogFile() {
	if logFileWriter != nil {
		_ = logFileWriter.Close()
		logFileWriter = nil
	}
}

// selectLevel determines the log level from verbosity flags.
func selectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// selectOutput picks the console writer: pretty output for a TTY without
// NO_COLOR, JSON to stderr otherwise.
func selectOutput() io.Writer {
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		}
	}
	return os.Stderr
}

// filteringWriteCloser wraps a WriteCloser with sensitive data filtering so
// redaction also applies to the on-disk log.
type filteringWriteCloser struct {
	filter *logging.FilteringWriter
	closer io.Closer
}

func (fwc *filteringWriteCloser) Write(p []byte) (n int, err error) {
	return fwc.filter.Write(p)
}

func (fwc *filteringWriteCloser) Close() error {
	return fwc.closer.Close()
}

// createLogFileWriter creates the rotating file writer for cfg.File.
func createLogFileWriter(cfg config.LogConfig) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}

	return &filteringWriteCloser{
		filter: logging.NewFilteringWriter(lj),
		closer: lj,
	}, nil
}
