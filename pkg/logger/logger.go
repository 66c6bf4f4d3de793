// Package logger provides context-aware structured logging on top of zap.
package logger

import (
	"context"
	"os"
	"path/filepath"

	"github.com/KretovDmitry/joint-account-service/internal/config"
	"github.com/go-chi/chi/v5/middleware"
	sqldblogger "github.com/simukti/sqldb-logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a logger that supports log levels, context and structured logging.
type Logger interface {
	// With returns a logger based off the root logger and decorates it with
	// the given context and arguments.
	With(ctx context.Context, args ...any) Logger

	// Debug uses fmt.Sprint to construct and log a message at DEBUG level.
	Debug(args ...any)
	// Info uses fmt.Sprint to construct and log a message at INFO level.
	Info(args ...any)
	// Warn uses fmt.Sprint to construct and log a message at WARN level.
	Warn(args ...any)
	// Error uses fmt.Sprint to construct and log a message at ERROR level.
	Error(args ...any)

	// Debugf uses fmt.Sprintf to construct and log a message at DEBUG level.
	Debugf(format string, args ...any)
	// Infof uses fmt.Sprintf to construct and log a message at INFO level.
	Infof(format string, args ...any)
	// Warnf uses fmt.Sprintf to construct and log a message at WARN level.
	Warnf(format string, args ...any)
	// Errorf uses fmt.Sprintf to construct and log a message at ERROR level.
	Errorf(format string, args ...any)

	// Log satisfies sqldblogger.Logger so database queries end up in the same sink.
	Log(ctx context.Context, level sqldblogger.Level, msg string, data map[string]any)

	// Sync flushes any buffered log entries.
	Sync() error
}

type logger struct {
	*zap.SugaredLogger
}

var _ sqldblogger.Logger = (*logger)(nil)

// New creates a new logger using the application configuration.
// Entries go to stdout and, if a path is configured, to a rotated file.
func New(cfg *config.Config) Logger {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if cfg.Logger.Level != "" {
		if l, err := zapcore.ParseLevel(cfg.Logger.Level); err == nil {
			level.SetLevel(l)
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stdout), level),
	}

	if cfg.Logger.Path != "" {
		file := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(cfg.Logger.Path, "jointaccount.log"),
			MaxSize:    cfg.Logger.MaxSizeMB,
			MaxBackups: cfg.Logger.MaxBackups,
			MaxAge:     cfg.Logger.MaxAgeDays,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), file, level))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))

	return NewWithZap(l)
}

// NewWithZap creates a new logger using the preconfigured zap logger.
func NewWithZap(l *zap.Logger) Logger {
	return &logger{l.Sugar()}
}

// NewForTest returns a new logger and the corresponding observed logs
// which can be used in unit tests to verify log entries.
func NewForTest() (Logger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewWithZap(zap.New(core)), recorded
}

// With returns a logger based off the root logger and decorates it with
// the given context and arguments.
//
// If the context contains a request ID, it will be added
// to every log message generated by the new logger.
//
// The arguments should be specified as a sequence of name, value pairs.
func (l *logger) With(ctx context.Context, args ...any) Logger {
	if ctx != nil {
		if id := middleware.GetReqID(ctx); id != "" {
			args = append(args, zap.String("request_id", id))
		}
	}
	if len(args) > 0 {
		return &logger{l.SugaredLogger.With(args...)}
	}
	return l
}

// Log implements sqldblogger.Logger.
func (l *logger) Log(_ context.Context, level sqldblogger.Level, msg string, data map[string]any) {
	fields := make([]any, 0, len(data)*2)
	for k, v := range data {
		fields = append(fields, k, v)
	}

	switch level {
	case sqldblogger.LevelError:
		l.SugaredLogger.Errorw(msg, fields...)
	case sqldblogger.LevelInfo:
		l.SugaredLogger.Infow(msg, fields...)
	default:
		l.SugaredLogger.Debugw(msg, fields...)
	}
}
