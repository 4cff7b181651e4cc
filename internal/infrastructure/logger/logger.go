package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"siteqa/internal/application/port/output"
)

var _ output.LoggerPort = (*ZapLogger)(nil)

// ZapLogger writes structured JSON lines to a per-scan file under ./log/
// and mirrors warnings and errors to stderr.
type ZapLogger struct {
	zl     *zap.SugaredLogger
	closer func() error
}

// NewZapLogger creates a logger for one scan. The file name embeds the
// start time and a sanitized scan label so parallel runs never collide.
func NewZapLogger(scanLabel string, debug bool) (*ZapLogger, error) {
	safeName := sanitize(scanLabel)
	filename := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02_15-04-05"), safeName)

	if err := os.MkdirAll("log", 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join("log", filename),
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     14, // days
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stderr), zapcore.WarnLevel),
	)

	zl := zap.New(core)

	return &ZapLogger{
		zl: zl.Sugar(),
		closer: func() error {
			_ = zl.Sync()
			return rotator.Close()
		},
	}, nil
}

func (l *ZapLogger) Debug(msg string, args ...any) { l.zl.Debugw(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...any)  { l.zl.Infow(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...any)  { l.zl.Warnw(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...any) { l.zl.Errorw(msg, args...) }

func (l *ZapLogger) WithField(key string, value any) output.LoggerPort {
	return &ZapLogger{zl: l.zl.With(key, value), closer: l.closer}
}

func (l *ZapLogger) WithFields(fields map[string]any) output.LoggerPort {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &ZapLogger{zl: l.zl.With(args...), closer: l.closer}
}

func (l *ZapLogger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer()
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
	s = strings.Trim(s, "_")
	if s == "" {
		return "scan"
	}
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}
