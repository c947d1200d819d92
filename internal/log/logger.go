package log

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var (
	atom   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger = build("console")
	sugar  = logger.Sugar()
)

func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug
	case "info", "":
		return Info
	case "warn", "warning":
		return Warn
	case "err", "error":
		return Error
	default:
		return Info
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case Debug:
		return zapcore.DebugLevel
	case Warn:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func SetLevel(l Level) { atom.SetLevel(l.zapLevel()) }

func Enabled(l Level) bool { return atom.Enabled(l.zapLevel()) }

func build(format string) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.Lock(os.Stderr), atom), zap.AddCaller(), zap.AddCallerSkip(1))
}

// Init replaces the process logger. format is "console" or "json".
func Init(level, format string) {
	logger = build(strings.ToLower(strings.TrimSpace(format)))
	sugar = logger.Sugar()
	SetLevel(ParseLevel(level))
}

func InitFromEnvFallback(level, format string) {
	// Allow override via ENV if provided
	if env := os.Getenv("TODO_LOG_LEVEL"); env != "" {
		level = env
	}
	Init(level, format)
}

// Named returns a structured logger for a component, for code that prefers
// key/value fields over format strings.
func Named(name string) *zap.SugaredLogger {
	return logger.WithOptions(zap.AddCallerSkip(-1)).Sugar().Named(name)
}

func Sync() { _ = logger.Sync() }

func Debugf(format string, v ...any) { sugar.Debugf(format, v...) }
func Infof(format string, v ...any)  { sugar.Infof(format, v...) }
func Warnf(format string, v ...any)  { sugar.Warnf(format, v...) }
func Errorf(format string, v ...any) { sugar.Errorf(format, v...) }
