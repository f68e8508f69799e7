package gateway

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/soyeahso/twitchbot/internal/config"
	"github.com/soyeahso/twitchbot/internal/logging"
	"github.com/soyeahso/twitchbot/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
})

func TestAccessMiddleware(t *testing.T) {
	var buf bytes.Buffer
	m, err := telemetry.New()
	require.NoError(t, err)
	handler := requestIDMiddleware(accessMiddleware(okHandler, logging.New(&buf, "debug"), m))

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, buf.String(), "req-1")
	assert.Contains(t, buf.String(), "http request")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/wp-login.php", nil))

	body := scrape(t, m)
	assert.Contains(t, body, `twitchbot_http_requests_total{code="200",route="/healthz"} 1`)
	assert.Contains(t, body, `twitchbot_http_requests_total{code="200",route="other"} 1`)
}

func TestAccessMiddleware_NilMetrics(t *testing.T) {
	handler := accessMiddleware(okHandler, logging.Nop(), nil)
	rr := httptest.NewRecorder()
	assert.NotPanics(t, func() { handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil)) })
	assert.Equal(t, "ok", rr.Body.String())
}

func TestRouteOf(t *testing.T) {
	assert.Equal(t, "/healthz", routeOf("/healthz"))
	assert.Equal(t, "/metrics", routeOf("/metrics"))
	assert.Equal(t, "/overlay", routeOf("/overlay"))
	assert.Equal(t, "other", routeOf("/overlay/extra"))
	assert.Equal(t, "other", routeOf("/"))
}

func TestRequestIDMiddleware(t *testing.T) {
	handler := requestIDMiddleware(okHandler)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
	assert.Len(t, rr.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Request-ID", "custom-id-123")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "custom-id-123", rr.Header().Get("X-Request-ID"))
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{"deny when unconfigured", nil, "http://localhost:3000", ""},
		{"wildcard", []string{"*"}, "http://localhost:3000", "http://localhost:3000"},
		{"obs browser source", []string{"http://absolute"}, "http://absolute", "http://absolute"},
		{"unlisted origin", []string{"http://absolute"}, "http://evil.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/healthz", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			corsMiddleware(okHandler, tt.allowed).ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	corsMiddleware(okHandler, nil).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestRecoverMiddleware(t *testing.T) {
	var buf bytes.Buffer
	boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	rr := httptest.NewRecorder()

	recoverMiddleware(boom, logging.New(&buf, "error")).ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, buf.String(), "http handler panicked")
	assert.Contains(t, buf.String(), "boom")
}

func TestRecoverMiddleware_AbortHandlerPropagates(t *testing.T) {
	abort := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic(http.ErrAbortHandler) })
	rr := httptest.NewRecorder()
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		recoverMiddleware(abort, logging.Nop()).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	})
}

func TestChain(t *testing.T) {
	s := New(config.HTTPConfig{AllowedOrigins: []string{"http://test.com"}}, logging.Nop())

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("Origin", "http://test.com")
	rr := httptest.NewRecorder()
	s.chain(okHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "http://test.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusWriter_HijackUnsupported(t *testing.T) {
	sw := &statusWriter{ResponseWriter: httptest.NewRecorder()}
	_, _, err := sw.Hijack()
	require.Error(t, err)
}

func scrape(t *testing.T, m *telemetry.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}
