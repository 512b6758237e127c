package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than threshold goroutines are running.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// GCMaxPauseCheck fails when a recent stop-the-world pause exceeded
// threshold.
func GCMaxPauseCheck(threshold time.Duration) CheckFunc {
	return func(context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)
		if i := firstPauseOver(stats.Pause, threshold); i >= 0 {
			return errors.Errorf("GC pause %s exceeds threshold %s", stats.Pause[i], threshold)
		}
		return nil
	}
}

func firstPauseOver(pauses []time.Duration, threshold time.Duration) int {
	for i, p := range pauses {
		if p > threshold {
			return i
		}
	}
	return -1
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck fails when the database does not answer a ping.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// PoolStats is the subset of *pgxpool.Stat the saturation check reads.
type PoolStats interface {
	IdleConns() int32
	AcquiredConns() int32
	MaxConns() int32
	EmptyAcquireCount() int64
}

// PoolSaturationCheck fails when every connection is acquired and more than
// maxWaits acquires had to wait since the previous run.
func PoolSaturationCheck(stat func() PoolStats, maxWaits int64) CheckFunc {
	var lastEmpty int64
	return func(context.Context) error {
		s := stat()
		empty := s.EmptyAcquireCount()
		waits := empty - lastEmpty
		lastEmpty = empty
		if s.IdleConns() == 0 && s.AcquiredConns() >= s.MaxConns() && waits > maxWaits {
			return errors.Errorf("connection pool saturated: %d/%d acquired, %d waits since last check",
				s.AcquiredConns(), s.MaxConns(), waits)
		}
		return nil
	}
}
