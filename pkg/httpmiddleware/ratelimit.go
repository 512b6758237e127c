package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/jx"
)

// Rate is a request budget per sliding window.
type Rate struct {
	Max    int
	Window time.Duration
}

// ThrottleConfig configures Throttle. Requests that Identify attributes to a
// user are counted against User, keyed by the user; all others are counted
// against Anon, keyed by client address.
type ThrottleConfig struct {
	Anon Rate
	User Rate
	// Identify returns a stable user key for authenticated requests. When
	// nil, every request is anonymous.
	Identify func(*http.Request) (string, bool)
	// ClientIP extracts the anonymous key. Defaults to the client address.
	ClientIP func(*http.Request) string
	// Now is the time source. Defaults to time.Now.
	Now func() time.Time
}

// window tracks request counts across two adjacent fixed windows; the
// previous one is weighted by how much it still overlaps the sliding window.
type window struct {
	prevCount float64
	prevStart time.Time
	currCount float64
	currStart time.Time
}

// limiter is a sliding window counter for a single Rate.
type limiter struct {
	rate    Rate
	mu      sync.Mutex
	windows map[string]*window
}

func newLimiter(rate Rate) *limiter {
	return &limiter{rate: rate, windows: make(map[string]*window)}
}

// take consumes one request for key if the budget allows it.
func (l *limiter) take(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, found := l.windows[key]
	if !found {
		w = &window{currStart: now.Truncate(l.rate.Window)}
		l.windows[key] = w
	}

	if now.Sub(w.currStart) >= l.rate.Window {
		w.prevCount, w.prevStart = w.currCount, w.currStart
		w.currCount = 0
		w.currStart = now.Truncate(l.rate.Window)
		if w.currStart.Sub(w.prevStart) > l.rate.Window {
			w.prevCount = 0
		}
	}

	overlap := 1 - now.Sub(w.currStart).Seconds()/l.rate.Window.Seconds()
	count := w.prevCount*math.Max(overlap, 0) + w.currCount
	resetAt = w.currStart.Add(l.rate.Window)
	if count >= float64(l.rate.Max) {
		return 0, resetAt, false
	}

	w.currCount++
	return max(int(float64(l.rate.Max)-count-1), 0), resetAt, true
}

// evict drops windows that can no longer affect a decision.
func (l *limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if now.Sub(w.currStart) >= 2*l.rate.Window {
			delete(l.windows, key)
		}
	}
}

func (l *limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

type throttle struct {
	cfg  ThrottleConfig
	anon *limiter
	user *limiter
}

func newThrottle(cfg ThrottleConfig) *throttle {
	if cfg.ClientIP == nil {
		cfg.ClientIP = clientIP
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	for _, r := range []*Rate{&cfg.Anon, &cfg.User} {
		if r.Window <= 0 {
			r.Window = time.Minute
		}
	}
	return &throttle{cfg: cfg, anon: newLimiter(cfg.Anon), user: newLimiter(cfg.User)}
}

// Throttle limits request rates with separate anonymous and per-user
// budgets. Rejected requests get 429 with a Retry-After header. Every
// response carries X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset. Stale counters are evicted until ctx is done.
func Throttle(ctx context.Context, cfg ThrottleConfig) Middleware {
	t := newThrottle(cfg)
	go t.evictLoop(ctx)
	return t.middleware
}

func (t *throttle) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * max(t.cfg.Anon.Window, t.cfg.User.Window))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.anon.evict(now)
			t.user.evict(now)
		}
	}
}

func (t *throttle) pick(r *http.Request) (*limiter, string) {
	if t.cfg.Identify != nil {
		if key, ok := t.cfg.Identify(r); ok {
			return t.user, key
		}
	}
	return t.anon, t.cfg.ClientIP(r)
}

func (t *throttle) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l, key := t.pick(r)
		now := t.cfg.Now()
		remaining, resetAt, ok := l.take(key, now)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.rate.Max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		wait := int64(math.Ceil(max(resetAt.Sub(now), 0).Seconds()))
		h.Set("Retry-After", strconv.FormatInt(wait, 10))
		h.Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)

		var e jx.Encoder
		e.ObjStart()
		e.FieldStart("code")
		e.Int(http.StatusTooManyRequests)
		e.FieldStart("message")
		e.Str("Request was throttled. Expected available in " + strconv.FormatInt(wait, 10) + " seconds.")
		e.ObjEnd()
		_, _ = w.Write(e.Bytes())
	})
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
