package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger.
type Options struct {
	// Mode is "dev" (console, debug level) or "prod" (JSON, info level).
	Mode string

	// File, when set, adds a rotating JSON log file.
	File string

	// Quiet drops the console sink. Used by CLI commands whose stdout is data.
	Quiet bool
}

// Logger is a structured logger taking alternating key/value pairs.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a Logger writing to stderr and, optionally, a rotating file.
func New(opts Options) (*Logger, error) {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	level := zap.DebugLevel
	var consoleEnc zapcore.Encoder
	switch strings.ToLower(opts.Mode) {
	case "prod", "production":
		level = zap.InfoLevel
		consoleEnc = zapcore.NewJSONEncoder(encCfg)
	default:
		consoleEnc = zapcore.NewConsoleEncoder(encCfg)
	}

	var cores []zapcore.Core
	if !opts.Quiet {
		cores = append(cores, zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), level))
	}
	if opts.File != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), fileWriter, level))
	}
	if len(cores) == 0 {
		return Nop(), nil
	}

	z := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{SugaredLogger: z.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// FromZap wraps an existing zap logger. Used by tests with zaptest/observer.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{SugaredLogger: z.Sugar()}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}

// With returns a child logger that adds the given pairs to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}
