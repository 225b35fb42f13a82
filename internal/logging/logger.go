package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevelEnvVar controls console logging verbosity.
// When unset or empty, nothing is written to the console.
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "ESIMCTL_LOG_LEVEL"

// LogFileName is the self-log file name inside the state directory.
const LogFileName = "esimctl.log"

// maxLogFileSize is the size at which the self-log is rotated to <name>.1 on open.
const maxLogFileSize = 1 << 20

var (
	mu        sync.Mutex
	logger    *zap.Logger
	logFile   *os.File
	logPath   string
	fileLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Initialize creates a console-only logger with the specified level.
// If level is empty, it checks ESIMCTL_LOG_LEVEL.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	return InitializeWithFile(level, "")
}

// InitializeFromEnv initializes console logging from ESIMCTL_LOG_LEVEL only.
func InitializeFromEnv() error {
	return Initialize("")
}

// InitializeWithFile creates a logger that writes JSON lines to path in
// addition to the optional console output. The file is the self-log shown
// by the log viewer; its level follows SetVerbose.
func InitializeWithFile(level, path string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	var cores []zapcore.Core

	if level != "" {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encCfg.EncodeCaller = zapcore.ShortCallerEncoder

		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			parseLevel(level),
		))
	}

	var f *os.File
	if path != "" {
		var err error
		f, err = openLogFile(path)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.AddSync(f),
			fileLevel,
		))
	}

	mu.Lock()
	defer mu.Unlock()

	closeFileLocked()
	logFile = f
	logPath = path

	if len(cores) == 0 {
		logger = zap.NewNop()
		return nil
	}
	logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		// Unknown level - use info as default when explicitly set to something
		return zapcore.InfoLevel
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if info, err := os.Stat(path); err == nil && info.Size() > maxLogFileSize {
		_ = os.Rename(path, path+".1")
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func closeFileLocked() {
	if logger != nil {
		_ = logger.Sync()
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// SetVerbose switches the self-log between info and debug level.
func SetVerbose(verbose bool) {
	if verbose {
		fileLevel.SetLevel(zapcore.DebugLevel)
	} else {
		fileLevel.SetLevel(zapcore.InfoLevel)
	}
}

// Verbose reports whether the self-log records debug entries.
func Verbose() bool {
	return fileLevel.Enabled(zapcore.DebugLevel)
}

// FilePath returns the self-log path, or "" when logging to a file is disabled.
func FilePath() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		// Silent until initialized so CLI output stays clean
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogConnection logs a daemon connection event
func LogConnection(remoteAddr string, event string) {
	Info("Connection event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogWebSocketMessage logs a daemon protocol message. The payload is only
// included at debug level.
func LogWebSocketMessage(remoteAddr, direction, msgType string, data []byte) {
	fields := []zap.Field{
		zap.String("remote_addr", remoteAddr),
		zap.String("direction", direction),
		zap.String("message_type", msgType),
		zap.Int("length", len(data)),
	}

	if GetLogger().Core().Enabled(zapcore.DebugLevel) {
		fields = append(fields, zap.String("content", truncate(data, 512)))
		Debug("WebSocket message", fields...)
		return
	}
	Info("WebSocket message", fields...)
}

// LogTransition logs a wizard step change
func LogTransition(session, from, to, direction string) {
	Info("Wizard transition",
		zap.String("session", session),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("direction", direction),
	)
}

func truncate(data []byte, limit int) string {
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}

// Sync flushes any buffered log entries
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		_ = logger.Sync()
	}
}

// Close flushes and closes the self-log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeFileLocked()
	logger = zap.NewNop()
	logPath = ""
}
