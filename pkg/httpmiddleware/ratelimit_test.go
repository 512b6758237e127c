package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// identifyByHeader treats X-User as the authenticated user.
func identifyByHeader(r *http.Request) (string, bool) {
	u := r.Header.Get("X-User")
	return u, u != ""
}

func newTestThrottle(t *testing.T, anon, user int) (http.Handler, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	h := Throttle(t.Context(), ThrottleConfig{
		Anon:     Rate{Max: anon, Window: time.Minute},
		User:     Rate{Max: user, Window: time.Minute},
		Identify: identifyByHeader,
		Now:      clock.Now,
	})(okHandler())
	return h, clock
}

func do(h http.Handler, addr, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/menu-items", nil)
	req.RemoteAddr = addr
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestThrottle_UnderLimit(t *testing.T) {
	h, _ := newTestThrottle(t, 5, 10)

	for i := range 5 {
		w := do(h, "192.168.1.1:12345", "")
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(4-i), w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestThrottle_OverLimit(t *testing.T) {
	h, _ := newTestThrottle(t, 2, 10)

	for range 2 {
		require.Equal(t, http.StatusOK, do(h, "10.0.0.1:9999", "").Code)
	}

	w := do(h, "10.0.0.1:9999", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	var (
		code    int
		message string
	)
	err := jx.DecodeBytes(w.Body.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			v, err := d.Int()
			code = v
			return err
		case "message":
			v, err := d.Str()
			message = v
			return err
		default:
			return d.Skip()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Contains(t, message, "throttled")
}

func TestThrottle_SeparateBudgets(t *testing.T) {
	h, _ := newTestThrottle(t, 1, 3)

	require.Equal(t, http.StatusOK, do(h, "10.0.0.1:1", "").Code)
	require.Equal(t, http.StatusTooManyRequests, do(h, "10.0.0.1:1", "").Code)

	// Same address, authenticated: counted against the user budget.
	for range 3 {
		w := do(h, "10.0.0.1:1", "42")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, http.StatusTooManyRequests, do(h, "10.0.0.1:1", "42").Code)

	// Another user has its own budget.
	assert.Equal(t, http.StatusOK, do(h, "10.0.0.1:1", "43").Code)
	// Another address has its own anonymous budget.
	assert.Equal(t, http.StatusOK, do(h, "10.0.0.2:1", "").Code)
}

func TestThrottle_WindowSlides(t *testing.T) {
	h, clock := newTestThrottle(t, 2, 10)

	for range 2 {
		require.Equal(t, http.StatusOK, do(h, "10.0.0.1:1", "").Code)
	}
	require.Equal(t, http.StatusTooManyRequests, do(h, "10.0.0.1:1", "").Code)

	// Early in the next window the previous one still weighs in fully.
	clock.Advance(time.Minute)
	assert.Equal(t, http.StatusTooManyRequests, do(h, "10.0.0.1:1", "").Code)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, http.StatusOK, do(h, "10.0.0.1:1", "").Code)
}

func TestLimiter_Evict(t *testing.T) {
	l := newLimiter(Rate{Max: 10, Window: time.Minute})
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	_, _, ok := l.take("a", now)
	require.True(t, ok)
	_, _, ok = l.take("b", now.Add(90*time.Second))
	require.True(t, ok)

	l.evict(now.Add(2 * time.Minute))
	assert.Equal(t, 1, l.size())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{name: "forwarded chain", header: map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, remote: "10.0.0.1:80", want: "203.0.113.5"},
		{name: "real ip", header: map[string]string{"X-Real-IP": "198.51.100.7"}, remote: "10.0.0.1:80", want: "198.51.100.7"},
		{name: "remote addr", remote: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "remote without port", remote: "192.0.2.1", want: "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
