package utils

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
	CRITICAL
)

func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case CRITICAL:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a flag value to a level, falling back to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TRACE
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "critical":
		return CRITICAL
	default:
		return INFO
	}
}

// zap has no trace level; TRACE is emitted one below debug.
const zapTraceLevel = zapcore.DebugLevel - 1

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case TRACE:
		return zapTraceLevel
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case CRITICAL:
		return zapcore.DPanicLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is a leveled printf-style logger backed by zap.
type Logger struct {
	mu    *sync.Mutex
	level zap.AtomicLevel
	file  *os.File
	sugar *zap.SugaredLogger
}

// NewFileLogger appends to filePath and optionally mirrors to stdout.
func NewFileLogger(filePath string, minLevel LogLevel, alsoStdout bool) (*Logger, error) {
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(f)}
	if alsoStdout {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}

	l := newLogger(zapcore.NewMultiWriteSyncer(sinks...), minLevel)
	l.file = f
	return l, nil
}

// NewStdoutLogger logs to stdout only.
func NewStdoutLogger(minLevel LogLevel) *Logger {
	return newLogger(zapcore.Lock(os.Stdout), minLevel)
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	return &Logger{
		mu:    &sync.Mutex{},
		level: zap.NewAtomicLevelAt(zapcore.FatalLevel),
		sugar: zap.NewNop().Sugar(),
	}
}

func newLogger(ws zapcore.WriteSyncer, minLevel LogLevel) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encCfg.EncodeLevel = encodeLevel

	level := zap.NewAtomicLevelAt(minLevel.zapLevel())
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, level)

	return &Logger{
		mu:    &sync.Mutex{},
		level: level,
		sugar: zap.New(core).Sugar(),
	}
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapTraceLevel:
		enc.AppendString("TRACE")
	case zapcore.DPanicLevel:
		enc.AppendString("CRITICAL")
	default:
		zapcore.CapitalLevelEncoder(l, enc)
	}
}

// Close flushes and closes the backing file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.sugar.Sync()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) SetMinLevel(level LogLevel) {
	l.level.SetLevel(level.zapLevel())
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{
		mu:    l.mu,
		level: l.level,
		file:  nil,
		sugar: l.sugar.With(keysAndValues...),
	}
}

// Zap exposes the underlying logger for libraries that take one.
func (l *Logger) Zap() *zap.Logger {
	return l.sugar.Desugar()
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	lvl := level.zapLevel()
	if !l.level.Enabled(lvl) {
		return
	}
	l.sugar.Logf(lvl, msg, args...)
}

func (l *Logger) Trace(msg string, args ...any)    { l.log(TRACE, msg, args...) }
func (l *Logger) Debug(msg string, args ...any)    { l.log(DEBUG, msg, args...) }
func (l *Logger) Info(msg string, args ...any)     { l.log(INFO, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)     { l.log(WARN, msg, args...) }
func (l *Logger) Error(msg string, args ...any)    { l.log(ERROR, msg, args...) }
func (l *Logger) Critical(msg string, args ...any) { l.log(CRITICAL, msg, args...) }
