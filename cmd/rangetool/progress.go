package main

import (
	"github.com/garethgeorge/blockranges/internal/progress"
	"go.uber.org/zap"
)

// logTracker reports progress through the logger.
type logTracker struct {
	logger *zap.Logger
}

var _ progress.Tracker = (*logTracker)(nil)

func (l *logTracker) SetMessage(msg string) { l.logger.Info(msg) }
func (l *logTracker) SetTotal(total int64)  { l.logger.Debug("progress total", zap.Int64("total", total)) }
func (l *logTracker) SetDone(n int64)       { l.logger.Debug("progress", zap.Int64("done", n)) }
func (l *logTracker) SetError(err error)    { l.logger.Warn("hashing stopped", zap.Error(err)) }
func (l *logTracker) MarkFinished()         { l.logger.Debug("hashing finished") }
