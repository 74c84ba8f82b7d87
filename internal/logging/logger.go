package logging

// Structured logging for flowmod

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelVerbose
	LogLevelDebug
)

// ParseLevel maps a config/flag string to a LogLevel
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent":
		return LogLevelSilent, nil
	case "error":
		return LogLevelError, nil
	case "", "info":
		return LogLevelInfo, nil
	case "verbose":
		return LogLevelVerbose, nil
	case "debug":
		return LogLevelDebug, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level '%s'", s)
}

// Logger provides structured logging
type Logger struct {
	mu       sync.Mutex
	level    LogLevel
	format   string
	logEvery int
	counter  int
	file     *os.File
	fileLog  *log.Logger
	fileJSON *zap.Logger
	stdout   *log.Logger
	stderr   *log.Logger
	outJSON  *zap.Logger
	errJSON  *zap.Logger
}

// NewLogger creates a new text logger
func NewLogger(level LogLevel, logFile string) (*Logger, error) {
	return NewLoggerWithOptions(level, logFile, "text", 1)
}

// NewLoggerWithOptions creates a logger with an output format ("text" or
// "json") and console sampling: only every logEvery-th non-error message
// reaches the console. The log file always receives every message.
func NewLoggerWithOptions(level LogLevel, logFile, format string, logEvery int) (*Logger, error) {
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("unknown log format '%s'", format)
	}
	if logEvery < 1 {
		logEvery = 1
	}

	l := &Logger{
		level:    level,
		format:   format,
		logEvery: logEvery,
		stdout:   log.New(os.Stdout, "", 0),
		stderr:   log.New(os.Stderr, "", 0),
	}
	if format == "json" {
		l.outJSON = newJSONLogger(os.Stdout)
		l.errJSON = newJSONLogger(os.Stderr)
	}

	// Open log file if specified
	if logFile != "" {
		file, err := os.Create(logFile)
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		l.file = file
		if format == "json" {
			l.fileJSON = newJSONLogger(file)
		} else {
			l.fileLog = log.New(file, "", log.LstdFlags)
		}
	}

	return l, nil
}

func newJSONLogger(w io.Writer) *zap.Logger {
	return zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:     "ts",
			MessageKey:  "message",
			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,
			EncodeTime:  zapcore.ISO8601TimeEncoder,
		}),
		zapcore.AddSync(w),
		zap.DebugLevel,
	))
}

// Close closes the logger and flushes all data
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileJSON != nil {
		_ = l.fileJSON.Sync()
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	if l.level >= LogLevelError {
		l.write(zapcore.ErrorLevel, "ERROR", fmt.Sprintf(format, v...))
	}
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	if l.level >= LogLevelInfo {
		l.write(zapcore.InfoLevel, "INFO", fmt.Sprintf(format, v...))
	}
}

// Verbose logs a verbose message
func (l *Logger) Verbose(format string, v ...interface{}) {
	if l.level >= LogLevelVerbose {
		l.write(zapcore.InfoLevel, "VERBOSE", fmt.Sprintf(format, v...))
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	if l.level >= LogLevelDebug {
		l.write(zapcore.DebugLevel, "DEBUG", fmt.Sprintf(format, v...))
	}
}

// write writes a message to the appropriate outputs
func (l *Logger) write(lvl zapcore.Level, label, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	isError := lvl == zapcore.ErrorLevel
	l.counter++

	// Always write to log file if available
	if l.fileLog != nil {
		l.fileLog.Println(label + ": " + msg)
	}
	if l.fileJSON != nil {
		l.fileJSON.Check(lvl, msg).Write(zap.String("label", strings.ToLower(label)))
	}

	if !isError && l.counter%l.logEvery != 0 {
		return
	}

	// Errors go to stderr, others to stdout (but only if verbose/debug)
	if !isError && l.level < LogLevelVerbose {
		return
	}
	if l.format == "json" {
		out := l.outJSON
		if isError {
			out = l.errJSON
		}
		out.Check(lvl, msg).Write(zap.String("label", strings.ToLower(label)))
		return
	}
	if isError {
		l.stderr.Println(label + ": " + msg)
	} else {
		l.stdout.Println(label + ": " + msg)
	}
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// LogStartup logs startup information
func (l *Logger) LogStartup(configPath string, flows int, startIndex, packets uint64, workers int, output string) {
	l.Info("Starting flowmod generator")
	l.Verbose("  Config: %s", configPath)
	l.Verbose("  Flows: %d", flows)
	l.Verbose("  Iterations: %d starting at %d", packets, startIndex)
	l.Verbose("  Workers: %d", workers)
	l.Verbose("  Output: %s", output)
}

// LogFlowSummary logs per-flow generation totals
func (l *Logger) LogFlowSummary(flow string, packets, bytes uint64) {
	l.Verbose("flow %s: %d packets, %d bytes", flow, packets, bytes)
}

// LogHex logs hex data (for debug level)
func (l *Logger) LogHex(label string, data []byte) {
	if l.level >= LogLevelDebug {
		hexStr := fmt.Sprintf("%x", data)
		// Format as hex with spaces every 2 bytes
		var formatted strings.Builder
		for i := 0; i < len(hexStr); i += 2 {
			if i > 0 {
				formatted.WriteByte(' ')
			}
			if i+2 <= len(hexStr) {
				formatted.WriteString(hexStr[i : i+2])
			} else {
				formatted.WriteString(hexStr[i:])
			}
		}
		l.Debug("%s: %s", label, formatted.String())
	}
}
