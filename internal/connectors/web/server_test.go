package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/memory_relay/internal/completion_gateway"
	"github.com/lewisedginton/memory_relay/internal/history_store"
	"github.com/lewisedginton/memory_relay/internal/monitoring"
	"github.com/lewisedginton/memory_relay/internal/session_orchestrator"
	"github.com/lewisedginton/memory_relay/pkg/metrics"
	"github.com/lewisedginton/memory_relay/pkg/prefixed_uuid"
)

type call struct{ userID, text string }

type fakeResponder struct {
	mu        sync.Mutex
	calls     []call
	facts     map[string]map[string]string
	factsErr  error
	forgotten []string
	mode      string
}

func newFakeResponder() *fakeResponder {
	return &fakeResponder{facts: map[string]map[string]string{}, mode: session_orchestrator.ModeFacts}
}

func (f *fakeResponder) MemoryMode() string { return f.mode }

func (f *fakeResponder) Respond(_ context.Context, userID, text string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{userID, text})
	return "reply to " + text
}

func (f *fakeResponder) Memories(_ context.Context, userID string) (map[string]string, error) {
	if f.factsErr != nil {
		return nil, f.factsErr
	}
	return f.facts[userID], nil
}

func (f *fakeResponder) Forget(_ context.Context, userID string) error {
	f.forgotten = append(f.forgotten, userID)
	delete(f.facts, userID)
	return nil
}

func (f *fakeResponder) Usage() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.calls))
}

func newTestServer(t *testing.T, cfg Config, r Responder) http.Handler {
	t.Helper()
	s, err := NewServer(cfg, r)
	require.NoError(t, err)
	return s.Handler()
}

func do(h http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestChat(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantReply  string
		wantUser   string
	}{
		{
			name:       "explicit user",
			body:       `{"message":"hi","user_id":"alice"}`,
			wantStatus: http.StatusOK,
			wantReply:  "reply to hi",
			wantUser:   "alice",
		},
		{
			name:       "default user",
			body:       `{"message":"  hello  "}`,
			wantStatus: http.StatusOK,
			wantReply:  "reply to hello",
			wantUser:   DefaultUserID,
		},
		{
			name:       "empty message",
			body:       `{"message":"   "}`,
			wantStatus: http.StatusBadRequest,
			wantReply:  "Empty message",
		},
		{
			name:       "missing message",
			body:       `{"user_id":"alice"}`,
			wantStatus: http.StatusBadRequest,
			wantReply:  "Empty message",
		},
		{
			name:       "empty body",
			body:       "",
			wantStatus: http.StatusBadRequest,
			wantReply:  "Empty message",
		},
		{
			name:       "malformed json",
			body:       `{"message":`,
			wantStatus: http.StatusBadRequest,
			wantReply:  "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newFakeResponder()
			h := newTestServer(t, Config{}, r)

			rec := do(h, http.MethodPost, "/chat", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantReply, decode[chatResponse](t, rec).Reply)
			if tt.wantUser != "" {
				require.Len(t, r.calls, 1)
				assert.Equal(t, tt.wantUser, r.calls[0].userID)
			} else {
				assert.Empty(t, r.calls)
			}
		})
	}
}

func TestIndexSetsVisitorCookieUsedByChat(t *testing.T) {
	r := newFakeResponder()
	h := newTestServer(t, Config{}, r)

	rec := do(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<title>Memory Relay</title>")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	id, err := prefixed_uuid.ParseWithPrefix(cookies[0].Value, "web")
	require.NoError(t, err)

	rec = do(h, http.MethodGet, "/", "", cookies[0])
	assert.Empty(t, rec.Result().Cookies(), "valid cookie is kept")

	do(h, http.MethodPost, "/chat", `{"message":"remember me"}`, cookies[0])
	require.Len(t, r.calls, 1)
	assert.Equal(t, id.String(), r.calls[0].userID)

	forged := &http.Cookie{Name: visitorCookie, Value: "admin"}
	do(h, http.MethodPost, "/chat", `{"message":"x"}`, forged)
	assert.Equal(t, DefaultUserID, r.calls[1].userID)
}

func TestHealth(t *testing.T) {
	r := newFakeResponder()
	h := newTestServer(t, Config{}, r)

	for i := 0; i < 3; i++ {
		do(h, http.MethodPost, "/chat", `{"message":"ping"}`)
	}

	rec := do(h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","usage":3}`, rec.Body.String())
}

func TestMemoryEndpoints(t *testing.T) {
	r := newFakeResponder()
	r.facts["42"] = map[string]string{"note": "likes tea"}
	h := newTestServer(t, Config{}, r)

	rec := do(h, http.MethodGet, "/memory/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"42","memories":{"note":"likes tea"}}`, rec.Body.String())

	rec = do(h, http.MethodDelete, "/memory/42", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"42"}, r.forgotten)

	rec = do(h, http.MethodGet, "/memory/42", "")
	assert.JSONEq(t, `{"user_id":"42","memories":{}}`, rec.Body.String())

	r.factsErr = session_orchestrator.ErrFactsUnavailable
	rec = do(h, http.MethodGet, "/memory/42", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	r.factsErr = errors.New("disk I/O error")
	rec = do(h, http.MethodGet, "/memory/42", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk")
}

func TestMemoryEndpoints_HistoryModeConflicts(t *testing.T) {
	hs, err := history_store.New(history_store.Config{})
	require.NoError(t, err)
	model := completion_gateway.ModelFunc(func(context.Context, string) (string, error) { return "hello", nil })
	o, err := session_orchestrator.New(session_orchestrator.Config{
		Memory:  session_orchestrator.NewHistoryMemory(hs, 5, false),
		Gateway: completion_gateway.New(model, completion_gateway.Config{}),
	})
	require.NoError(t, err)
	h := newTestServer(t, Config{}, o)

	rec := do(h, http.MethodPost, "/chat", `{"message":"hi","user_id":"42"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, hs.Recent("42", 0), 2)

	assert.Equal(t, http.StatusConflict, do(h, http.MethodGet, "/memory/42", "").Code)
	assert.Equal(t, http.StatusConflict, do(h, http.MethodDelete, "/memory/42", "").Code)
	assert.Len(t, hs.Recent("42", 0), 2, "history is left alone")
}

func TestProbesAndMetrics(t *testing.T) {
	m := metrics.New(true, nil)
	hm := monitoring.NewHealthMonitor(monitoring.Config{FailureThreshold: 1})
	h := newTestServer(t, Config{Metrics: m, ExposeMetrics: true, Health: hm}, newFakeResponder())

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health/ready", "").Code)

	do(h, http.MethodPost, "/chat", `{"message":"hi"}`)

	rec := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `relay_messages_total{channel="web"} 1`)
}

func TestMetricsHiddenUnlessExposed(t *testing.T) {
	h := newTestServer(t, Config{Metrics: metrics.New(false, nil)}, newFakeResponder())
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/metrics", "").Code)
}

func TestNewServerRequiresResponder(t *testing.T) {
	_, err := NewServer(Config{}, nil)
	assert.Error(t, err)
}
