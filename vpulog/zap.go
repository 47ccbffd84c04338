package vpulog

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewZapSink returns a Sink backed by a zap.Logger, for production
// deployments wanting structured, leveled output. The six vpu/vpulog
// levels are mapped onto zapcore levels as follows: Error->Error,
// Warning->Warn, Info->Info, and Debug/Log/Trace all collapse onto
// zapcore.DebugLevel (zap has no finer-grained debug tiers), with the
// original vpulog level name attached as a structured field so it can
// still be filtered on downstream.
func NewZapSink(zl *zap.Logger) Sink {
	return &zapSink{zl: zl.WithOptions(zap.AddCallerSkip(0))}
}

type zapSink struct {
	zl *zap.Logger
}

func (s *zapSink) Write(r Record) {
	fields := []zap.Field{
		zap.String("vpu_level", r.Level.String()),
		zap.String("file", r.File),
		zap.Int("line", r.Line),
		zap.String("func", r.Func),
	}
	switch r.Level {
	case LevelError:
		s.zl.Error(r.Message, fields...)
	case LevelWarning:
		s.zl.Warn(r.Message, fields...)
	case LevelInfo:
		s.zl.Info(r.Message, fields...)
	default: // Debug, Log, Trace.
		s.zl.Debug(r.Message, fields...)
	}
}

// NewRotatingFileSink returns a Sink that writes through a zap JSON encoder
// onto a lumberjack-rotated file, for long-running decode/encode daemons
// that cannot let their log file grow unbounded. maxSizeMB/maxBackups/maxAgeDays
// are passed straight through to lumberjack.Logger.
func NewRotatingFileSink(path string, maxSizeMB, maxBackups, maxAgeDays int) Sink {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(io.Writer(rotator)), zapcore.DebugLevel)
	return NewZapSink(zap.New(core))
}
