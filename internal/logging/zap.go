package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// traceLevel sits one notch below zap's DebugLevel since zap has no
// built-in trace level.
const traceLevel = zapcore.Level(zapcore.DebugLevel - 1)

// Options configures the zap-backed Logger.
type Options struct {
	Dir         string
	FileName    string
	Level       string // trace|debug|info|warn|error
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
	Development bool
}

func (o *Options) fixup() {
	if o.Dir == "" {
		exe, err := os.Executable()
		if err == nil {
			o.Dir = filepath.Dir(exe)
		} else {
			o.Dir = "."
		}
	}
	if o.FileName == "" {
		o.FileName = filepath.Base(os.Args[0])
	}
	if o.MaxBackups == 0 {
		o.MaxBackups = 5
	}
	if o.MaxSizeMB == 0 {
		o.MaxSizeMB = 500
	}
	if o.MaxAgeDays == 0 {
		o.MaxAgeDays = 5
	}
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "trace":
		return traceLevel
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

type zapLogger struct {
	z *zap.SugaredLogger
}

// New builds a Logger backed by zap. Development mode logs colorized text
// to stderr; otherwise it logs JSON to per-level rotating files under
// opt.Dir, mirroring the codebase's existing console/file split.
func New(opt Options) (Logger, error) {
	opt.fixup()

	level := parseLevel(opt.Level)
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = timeEncoder

	var core zapcore.Core
	if opt.Development {
		devCfg := zap.NewDevelopmentEncoderConfig()
		devCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		devCfg.EncodeTime = timeEncoder
		encoder := zapcore.NewConsoleEncoder(devCfg)
		core = zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(level))
	} else {
		encoder := zapcore.NewJSONEncoder(cfg)
		cores := make([]zapcore.Core, 0, 5)
		for _, lvl := range []zapcore.Level{traceLevel, zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel} {
			if lvl < level {
				continue
			}
			sink := zapcore.AddSync(&lumberjack.Logger{
				Filename:   filepath.Join(opt.Dir, fmt.Sprintf("%s-%s.log", opt.FileName, levelName(lvl))),
				MaxSize:    opt.MaxSizeMB,
				MaxAge:     opt.MaxAgeDays,
				MaxBackups: opt.MaxBackups,
				LocalTime:  true,
			})
			exact := lvl
			cores = append(cores, zapcore.NewCore(encoder, sink, zap.LevelEnablerFunc(func(l zapcore.Level) bool {
				return l == exact
			})))
		}
		core = zapcore.NewTee(cores...)
	}

	return &zapLogger{z: zap.New(core).Sugar()}, nil
}

func levelName(l zapcore.Level) string {
	if l == traceLevel {
		return "trace"
	}
	return l.String()
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05"))
}

func (l *zapLogger) Tracef(template string, args ...interface{}) {
	msg := fmt.Sprintf(template, args...)
	if ce := l.z.Desugar().Check(traceLevel, msg); ce != nil {
		ce.Write()
	}
}

func (l *zapLogger) Debugf(template string, args ...interface{}) { l.z.Debugf(template, args...) }
func (l *zapLogger) Infof(template string, args ...interface{})  { l.z.Infof(template, args...) }
func (l *zapLogger) Warnf(template string, args ...interface{})  { l.z.Warnf(template, args...) }
func (l *zapLogger) Errorf(template string, args ...interface{}) { l.z.Errorf(template, args...) }
