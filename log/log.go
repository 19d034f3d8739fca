// Package log contains a small leveled logging facade on top of
// go.uber.org/zap, so call sites depend on Logger rather than zap
// directly.
package log

import (
	"errors"
	"io"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the subset of methods every package in this tree logs through.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	Panic(args ...interface{})
	Panicf(format string, args ...interface{})
	WithFields(f Fields) Logger
}

// Fields attaches structured context to a logger, e.g. the connection
// number a Server hands to each handler.
type Fields map[string]interface{}

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	}
	panic("unexpected level: " + strconv.Itoa(int(l)))
}

var stringToLevel = map[string]Level{
	"DEBUG": DebugLevel,
	"INFO":  InfoLevel,
	"WARN":  WarnLevel,
	"ERROR": ErrorLevel,
	"FATAL": FatalLevel,
}

// LevelFromString parses a case-insensitive level name, as used by
// PODCACHE_LOG_LEVEL.
func LevelFromString(s string) (Level, error) {
	l, ok := stringToLevel[upper(s)]
	if !ok {
		return 0, errors.New("invalid log level " + s)
	}
	return l, nil
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	}
	return zapcore.InfoLevel
}

// New builds a Logger that writes level l and above to w, one JSON object
// per line. Below FatalLevel, Fatal still exits the process via zap's own
// os.Exit hook.
func New(l Level, w io.Writer) Logger {
	encoderConf := zap.NewProductionEncoderConfig()
	encoderConf.TimeKey = "ts"
	encoder := zapcore.NewJSONEncoder(encoderConf)
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), l.zapLevel())
	return &logger{sugar: zap.New(core).Sugar()}
}

// logger adapts a zap.SugaredLogger to the Logger interface above.
type logger struct {
	sugar *zap.SugaredLogger
}

func (l *logger) Debug(args ...interface{})                 { l.sugar.Debug(args...) }
func (l *logger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *logger) Info(args ...interface{})                  { l.sugar.Info(args...) }
func (l *logger) Infof(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *logger) Warn(args ...interface{})                  { l.sugar.Warn(args...) }
func (l *logger) Warnf(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *logger) Error(args ...interface{})                 { l.sugar.Error(args...) }
func (l *logger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }
func (l *logger) Fatal(args ...interface{})                 { l.sugar.Fatal(args...) }
func (l *logger) Fatalf(format string, args ...interface{}) { l.sugar.Fatalf(format, args...) }
func (l *logger) Panic(args ...interface{})                 { l.sugar.Panic(args...) }
func (l *logger) Panicf(format string, args ...interface{}) { l.sugar.Panicf(format, args...) }

func (l *logger) WithFields(f Fields) Logger {
	args := make([]interface{}, 0, 2*len(f))
	for k, v := range f {
		args = append(args, k, v)
	}
	return &logger{sugar: l.sugar.With(args...)}
}

// Nop is a Logger that discards everything, for tests that don't care.
func Nop() Logger { return &logger{sugar: zap.NewNop().Sugar()} }
