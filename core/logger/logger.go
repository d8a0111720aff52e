package logger

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const timeFormat = "06-01-02 15:04:05"

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) charmLevel() log.Level {
	switch l {
	case DEBUG:
		return log.DebugLevel
	case WARN:
		return log.WarnLevel
	case ERROR:
		return log.ErrorLevel
	case FATAL:
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

type MultiWriter struct {
	writers []io.Writer
}

func NewMultiWriter(writers ...io.Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (mw *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range mw.writers {
		if _, err := w.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (mw *MultiWriter) Add(writer io.Writer) {
	mw.writers = append(mw.writers, writer)
}

type StyledLogger struct {
	verbose bool
	mu      sync.RWMutex
	writer  io.Writer
	logger  *log.Logger
}

var globalLogger *StyledLogger

func init() {
	globalLogger = &StyledLogger{writer: os.Stderr}
	globalLogger.logger = newCharmLogger(os.Stderr)
}

func newCharmLogger(w io.Writer) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
		Level:           log.InfoLevel,
	})
	l.SetStyles(levelStyles())
	return l
}

func levelStyles() *log.Styles {
	styles := log.DefaultStyles()
	styles.Timestamp = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	for level, color := range map[LogLevel]string{
		DEBUG: "8",
		INFO:  "4",
		WARN:  "3",
		ERROR: "1",
		FATAL: "5",
	} {
		styles.Levels[level.charmLevel()] = lipgloss.NewStyle().
			SetString(level.String()).
			Width(5).
			Bold(true).
			Foreground(lipgloss.Color(color))
	}
	return styles
}

func SetVerbose(verbose bool) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.verbose = verbose
	if verbose {
		globalLogger.logger.SetLevel(log.DebugLevel)
	} else {
		globalLogger.logger.SetLevel(log.InfoLevel)
	}
}

func IsVerbose() bool {
	globalLogger.mu.RLock()
	defer globalLogger.mu.RUnlock()
	return globalLogger.verbose
}

// SetWriterForAll sends every level to writer, replacing earlier writers.
func SetWriterForAll(writer io.Writer) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.writer = writer
	globalLogger.logger.SetOutput(writer)
}

// AddWriterForAll tees every level to writer in addition to the current ones.
func AddWriterForAll(writer io.Writer) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	if mw, ok := globalLogger.writer.(*MultiWriter); ok {
		mw.Add(writer)
		return
	}
	multiWriter := NewMultiWriter(globalLogger.writer, writer)
	globalLogger.writer = multiWriter
	globalLogger.logger.SetOutput(multiWriter)
}

func (sl *StyledLogger) log(level LogLevel, format string, args ...interface{}) {
	sl.mu.RLock()
	logger := sl.logger
	sl.mu.RUnlock()

	logger.Logf(level.charmLevel(), format, args...)
	if level == FATAL {
		os.Exit(1)
	}
}

func Debug(format string, args ...interface{}) {
	globalLogger.log(DEBUG, format, args...)
}

func Info(format string, args ...interface{}) {
	globalLogger.log(INFO, format, args...)
}

func Warn(format string, args ...interface{}) {
	globalLogger.log(WARN, format, args...)
}

func Error(format string, args ...interface{}) {
	globalLogger.log(ERROR, format, args...)
}

func Fatal(format string, args ...interface{}) {
	globalLogger.log(FATAL, format, args...)
}

func GetLogFromLevel(level LogLevel) func(format string, args ...interface{}) {
	return func(format string, args ...interface{}) {
		globalLogger.log(level, format, args...)
	}
}
