package metrics

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/memory_relay/pkg/logger"
)

func TestObserveCompletion(t *testing.T) {
	m := New(false, logger.NewNopLogger())

	m.ObserveCompletion("gemini", "ok", 200*time.Millisecond)
	m.ObserveCompletion("gemini", "ok", 300*time.Millisecond)
	m.ObserveCompletion("gemini", "timeout", 30*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.completions.WithLabelValues("gemini", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.completions.WithLabelValues("gemini", "timeout")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.completionDuration))
}

func TestMessageAndStoreCounters(t *testing.T) {
	m := New(false, logger.NewNopLogger())

	m.MessageReceived("telegram")
	m.MessageReceived("web")
	m.MessageReceived("web")
	m.StoreFailure("recall")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.messages.WithLabelValues("web")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeFailures.WithLabelValues("recall")))
}

func TestCustomMetric(t *testing.T) {
	m := New(false, logger.NewNopLogger())
	var usage int64 = 7
	m.AddCustomMetric(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "usage",
		Help:      "usage",
	}, func() float64 { return float64(usage) }))

	expected := `# HELP relay_usage usage
# TYPE relay_usage gauge
relay_usage 7
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "relay_usage"))
}

func TestHTTPMiddleware(t *testing.T) {
	m := New(true, logger.NewNopLogger())
	h := m.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/chat" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/chat", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "400")))
}

func TestHTTPMiddleware_DisabledIsPassThrough(t *testing.T) {
	m := New(false, logger.NewNopLogger())
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	h := m.HTTPMiddleware(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestListen(t *testing.T) {
	m := New(false, logger.NewNopLogger())
	m.MessageReceived("web")
	port := freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Listen(ctx, port) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, body, `relay_messages_total{channel="web"} 1`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}
