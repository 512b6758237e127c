package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func serve(h http.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func runAll(h *Health, times int) {
	for range times {
		for _, p := range h.probes {
			p.run(context.Background())
		}
	}
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.Add(Check{Name: "goroutines", Kind: Liveness, Func: passing})
	h.Add(Check{Name: "deadlock", Kind: Liveness, Func: failing("stuck")})
	h.Add(Check{Name: "postgres", Kind: Readiness, Func: failing("refused")})

	w := serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, w.Code, "checks start healthy")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	runAll(h, 2)
	assert.Equal(t, http.StatusOK, serve(h.LiveEndpoint).Code, "below failure threshold")

	runAll(h, 1)
	w = serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"deadlock":"stuck"}}`, w.Body.String())
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	var down atomic.Bool
	h.Add(Check{Name: "postgres", Kind: Readiness, FailureThreshold: 1, Func: func(context.Context) error {
		if down.Load() {
			return errors.New("connection refused")
		}
		return nil
	}})

	w := serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "not ready until marked")
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, w.Body.String())

	h.SetReady(true)
	assert.True(t, h.IsReady())
	assert.Equal(t, http.StatusOK, serve(h.ReadyEndpoint).Code)

	down.Store(true)
	runAll(h, 1)
	assert.False(t, h.IsReady())
	w = serve(h.ReadyEndpoint)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"postgres":"connection refused"}}`, w.Body.String())

	down.Store(false)
	runAll(h, 1)
	assert.True(t, h.IsReady(), "recovers after one success")
}

func TestStartStop(t *testing.T) {
	h := New()
	var calls atomic.Int32
	h.Add(Check{Name: "counter", Kind: Liveness, Func: func(context.Context) error {
		calls.Add(1)
		return nil
	}})

	h.Start(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	h.Stop()
	h.Stop()

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no runs after Stop")
}

func TestCheckTimeout(t *testing.T) {
	p := &probe{Check: Check{
		Name: "slow", Timeout: 10 * time.Millisecond, FailureThreshold: 1, SuccessThreshold: 1,
		Func: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}}
	p.healthy.Store(true)
	p.run(context.Background())

	msg, failed := p.failure()
	require.True(t, failed)
	assert.Contains(t, msg, "deadline exceeded")
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestPingCheck(t *testing.T) {
	require.NoError(t, PingCheck(fakePinger{})(context.Background()))
	require.ErrorContains(t, PingCheck(fakePinger{err: errors.New("eof")})(context.Background()), "eof")
}

type fakeStats struct {
	idle, acquired, max int32
	empty               int64
}

func (s fakeStats) IdleConns() int32         { return s.idle }
func (s fakeStats) AcquiredConns() int32     { return s.acquired }
func (s fakeStats) MaxConns() int32          { return s.max }
func (s fakeStats) EmptyAcquireCount() int64 { return s.empty }

func TestPoolSaturationCheck(t *testing.T) {
	var cur fakeStats
	check := PoolSaturationCheck(func() PoolStats { return cur }, 5)
	ctx := context.Background()

	cur = fakeStats{idle: 2, acquired: 2, max: 4, empty: 0}
	require.NoError(t, check(ctx))

	cur = fakeStats{idle: 0, acquired: 4, max: 4, empty: 3}
	require.NoError(t, check(ctx), "few waits")

	cur = fakeStats{idle: 0, acquired: 4, max: 4, empty: 20}
	require.ErrorContains(t, check(ctx), "saturated")

	cur = fakeStats{idle: 1, acquired: 3, max: 4, empty: 40}
	require.NoError(t, check(ctx), "idle connection available")
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	require.Error(t, GoroutineCountCheck(0)(context.Background()))
}
