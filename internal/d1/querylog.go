package d1

import (
	"sync/atomic"

	"github.com/vvka-141/d1sql/pkg/d1sql"
)

var globalQueryLogger atomic.Pointer[d1sql.QueryLogger]

// SetGlobalQueryLogger registers a process-wide query logger. The last registration
// wins. A nil logger is the same as ResetGlobalQueryLogger.
func SetGlobalQueryLogger(l d1sql.QueryLogger) {
	if l == nil {
		globalQueryLogger.Store(nil)
		return
	}
	globalQueryLogger.Store(&l)
}

// ResetGlobalQueryLogger removes the process-wide query logger.
func ResetGlobalQueryLogger() {
	globalQueryLogger.Store(nil)
}

func loadGlobalQueryLogger() d1sql.QueryLogger {
	if p := globalQueryLogger.Load(); p != nil {
		return *p
	}
	return nil
}

// notify calls l, swallowing any panic so a faulty logger never breaks a query.
func notify(l d1sql.QueryLogger, ev d1sql.QueryEvent) {
	if l == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	l(ev)
}
