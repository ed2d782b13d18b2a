package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	currentLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar        = newDefault()
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel converts a level name (case-insensitive) into a Level.
// Unknown names yield LevelInfo and false.
func ParseLevel(level string) (Level, bool) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	}
	return LevelInfo, false
}

func SetLevel(level string) {
	if l, ok := ParseLevel(level); ok {
		currentLevel.SetLevel(l.zapLevel())
	}
}

// Enabled reports whether messages at level would be written.
func Enabled(level Level) bool {
	return currentLevel.Enabled(level.zapLevel())
}

// Configure replaces the output sink.
//
// format is "text" (console encoder, human readable) or "json".
// output is "stdout", "stderr" or a file path.
func Configure(level, format, output string) error {
	SetLevel(level)

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var encoding string
	switch strings.ToLower(format) {
	case "", "text":
		encoding = "console"
	case "json":
		encoding = "json"
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	if output == "" {
		output = "stdout"
	}

	cfg := zap.Config{
		Level:            currentLevel,
		Encoding:         encoding,
		EncoderConfig:    encCfg,
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	_ = sugar.Sync()
	sugar = l.Sugar()
	return nil
}

// Sync flushes buffered log entries.
func Sync() error {
	return sugar.Sync()
}

func newDefault() *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeCaller = nil
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		currentLevel,
	)
	return zap.New(core).Sugar()
}

func Debug(format string, v ...any) {
	sugar.Debugf(format, v...)
}

func Info(format string, v ...any) {
	sugar.Infof(format, v...)
}

func Warn(format string, v ...any) {
	sugar.Warnf(format, v...)
}

func Error(format string, v ...any) {
	sugar.Errorf(format, v...)
}
