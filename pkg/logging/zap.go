// Package logging adapts structured loggers to relax.Logger.
package logging

import "go.uber.org/zap"

// Zap forwards key/value diagnostics to a zap SugaredLogger.
type Zap struct {
	sugar *zap.SugaredLogger
}

// NewZap wraps logger. A nil logger is replaced with zap.NewNop().
func NewZap(logger *zap.Logger) *Zap {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Zap{sugar: logger.Named("relax").Sugar()}
}

func (z *Zap) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }

func (z *Zap) Warn(msg string, args ...any) { z.sugar.Warnw(msg, args...) }

func (z *Zap) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }

// Sync flushes buffered entries.
func (z *Zap) Sync() error {
	return z.sugar.Sync()
}
