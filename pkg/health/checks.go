package health

import (
	"context"
	"runtime"
)

// StoreCheck reports the document store backend as unhealthy when probe fails
func StoreCheck(backend string, probe func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "store",
			Details: map[string]any{"backend": backend},
		}
		if err := probe(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		check.Status = StatusHealthy
		check.Message = "Reachable"
		return check
	}
}

// SessionCheck degrades once more than limit sessions are open. A zero limit
// only reports the count.
func SessionCheck(count func() int, limit int) CheckFunc {
	return func(ctx context.Context) Check {
		n := count()
		check := Check{
			Name:    "sessions",
			Status:  StatusHealthy,
			Details: map[string]any{"open": n},
		}
		if limit > 0 {
			check.Details["limit"] = limit
			if n > limit {
				check.Status = StatusDegraded
				check.Message = "Too many open sessions"
			}
		}
		return check
	}
}

// MemoryCheck degrades when allocated heap exceeds 90% of memory obtained
// from the OS
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func(ctx context.Context) Check {
		alloc, sys := getUsage()
		check := Check{
			Name:    "memory",
			Status:  StatusHealthy,
			Details: map[string]any{"alloc_bytes": alloc, "sys_bytes": sys},
		}
		if sys > 0 && float64(alloc)/float64(sys) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		}
		return check
	}
}

// RuntimeMemory reads the current heap figures
func RuntimeMemory() (alloc, sys uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}
