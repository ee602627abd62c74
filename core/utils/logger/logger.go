package logger

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar atomic.Pointer[zap.SugaredLogger]
)

func init() {
	sugar.Store(build(os.Stdout))
}

func build(out zapcore.WriteSyncer) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(out), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// SetOutput redirect logs, tests use it to capture them
func SetOutput(out zapcore.WriteSyncer) {
	sugar.Store(build(out))
}

// SetLevel set minimum level from its name: debug, info, warn, error
func SetLevel(lvl string) {
	l, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(lvl)))
	if err != nil {
		Warn("unknown log level", lvl, "keeping", level.String())
		return
	}
	level.SetLevel(l)
}

// Sync flush buffered logs, call it before exit
func Sync() {
	_ = sugar.Load().Sync()
}

// Printfs take pattern prefixed by a color code (rd,gr,yl,bl,mg) that select the level
func Printfs(pattern string, anything ...any) {
	log := sugar.Load()
	if len(pattern) < 2 {
		log.Infof(pattern, anything...)
		return
	}
	switch pattern[:2] {
	case "rd":
		log.Errorf(pattern[2:], anything...)
	case "yl", "mg":
		log.Warnf(pattern[2:], anything...)
	case "gr", "bl":
		log.Infof(pattern[2:], anything...)
	default:
		log.Infof(pattern, anything...)
	}
}

// CheckError check if err not nil print it and return true
func CheckError(err error) bool {
	if err != nil {
		sugar.Load().Errorf("%v", err)
		return true
	}
	return false
}

// Error log anything at error level
func Error(anything ...any) {
	sugar.Load().Error(join(anything))
}

// Info log anything at info level
func Info(anything ...any) {
	sugar.Load().Info(join(anything))
}

// Debug log anything at debug level
func Debug(anything ...any) {
	sugar.Load().Debug(join(anything))
}

// Success log anything at info level with a success marker
func Success(anything ...any) {
	sugar.Load().Info("✓ " + join(anything))
}

// Warn log anything at warn level
func Warn(anything ...any) {
	sugar.Load().Warn(join(anything))
}

// Infow log a message with structured key/values
func Infow(msg string, keysAndValues ...any) {
	sugar.Load().Infow(msg, keysAndValues...)
}

// Errorw log a message with structured key/values
func Errorw(msg string, keysAndValues ...any) {
	sugar.Load().Errorw(msg, keysAndValues...)
}

func join(anything []any) string {
	parts := make([]string, len(anything))
	for i, a := range anything {
		parts[i] = fmt.Sprint(a)
	}
	return strings.Join(parts, "  ")
}
