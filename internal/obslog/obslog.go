/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package obslog wraps a zap.SugaredLogger with the terse call shape the
// teacher's jacobin/trace package uses (trace.Trace/trace.Error), so every
// caller in this repo logs the same way regardless of which concrete backend
// sits underneath.
package obslog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu      sync.RWMutex
	current *zap.SugaredLogger
)

func init() {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	current = logger.Sugar()
}

// L returns the process-wide logger, matching the teacher's habit of a
// package-level accessor rather than threading a logger through every call.
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetLogger replaces the process-wide logger, used by tests that want to
// capture output or by a host embedding this package with its own zap config.
func SetLogger(l *zap.SugaredLogger) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}

// Sync flushes any buffered log entries; callers should defer this at
// process exit the way the teacher defers trace file closes.
func Sync() {
	_ = L().Sync()
}
