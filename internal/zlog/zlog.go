// Package zlog provides the process-level structured logger used for
// internal diagnostics (LSP spawn failures, policy rejections, provider
// errors). It is distinct from internal/sessionlog, which is the ordered,
// replayable event stream a run produces — zlog is for operators, sessionlog
// is for the run-history record.
package zlog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.RWMutex
	global *zap.Logger
)

func init() {
	global, _ = zap.NewProduction()
	if global == nil {
		global = zap.NewNop()
	}
}

// Set replaces the process-global logger, e.g. with a development logger in
// tests or a no-op logger when verbose diagnostics are disabled.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = l
}

// L returns the current process-global logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// NewNop returns a logger that discards everything, used by default in
// tests so they don't spam stderr.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
