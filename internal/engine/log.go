package engine

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// logAdapter bridges the SDK's keyval logger interface onto zap's sugared
// logger.
type logAdapter struct {
	s *zap.SugaredLogger
}

func newLogAdapter(logger *zap.Logger) log.Logger {
	// Skip one frame so call sites inside the SDK are not attributed here.
	return &logAdapter{s: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *logAdapter) Debug(msg string, keyvals ...any) { l.s.Debugw(msg, keyvals...) }
func (l *logAdapter) Info(msg string, keyvals ...any)  { l.s.Infow(msg, keyvals...) }
func (l *logAdapter) Warn(msg string, keyvals ...any)  { l.s.Warnw(msg, keyvals...) }
func (l *logAdapter) Error(msg string, keyvals ...any) { l.s.Errorw(msg, keyvals...) }
