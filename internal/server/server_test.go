package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/lewisedginton/memory_relay/internal/config"
	"github.com/lewisedginton/memory_relay/internal/persona_manager"
	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// fakeOpenAI answers chat completions and records each prompt.
type fakeOpenAI struct {
	mu      sync.Mutex
	prompts []string
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	body, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(body, &req)

	f.mu.Lock()
	if len(req.Messages) > 0 {
		f.prompts = append(f.prompts, req.Messages[0].Content)
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":0,"model":"gpt-4o-mini",
		"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"noted"}}]}`))
}

func (f *fakeOpenAI) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[len(f.prompts)-1]
}

func loadConfig(t *testing.T, apiURL string, env map[string]string) *appconfig.AppConfig {
	t.Helper()
	t.Setenv("TELEGRAM_ENABLED", "false")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_API_URL", apiURL+"/")
	t.Setenv("PERSONA_DIR", t.TempDir())
	t.Setenv("METRICS_EXPOSE", "true")
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := appconfig.Load("")
	require.NoError(t, err)
	return cfg
}

func post(t *testing.T, h http.Handler, body string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Reply string `json:"reply"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Reply
}

func TestServer_FactsModeEndToEnd(t *testing.T) {
	api := &fakeOpenAI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	dbPath := filepath.Join(t.TempDir(), "memory.db")
	cfg := loadConfig(t, srv.URL, map[string]string{"STORE_SQLITE_PATH": dbPath})

	s, err := New(context.Background(), cfg, logger.NewNopLogger())
	require.NoError(t, err)
	defer s.closeStore()
	h := s.web.Handler()

	assert.Equal(t, "noted", post(t, h, `{"message":"I like tea","user_id":"1"}`))
	post(t, h, `{"message":"what do I like?","user_id":"1"}`)

	prompt := api.last()
	assert.True(t, strings.HasPrefix(prompt, persona_manager.BuiltinPersona))
	assert.Contains(t, prompt, "- last_message: I like tea")
	assert.True(t, strings.HasSuffix(prompt, "User: what do I like?"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok","usage":2}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "relay_usage_total 2")
	assert.Contains(t, rec.Body.String(), `relay_completions_total{outcome="ok",provider="openai"} 2`)
}

func TestServer_HistoryModeUsesPersonaFile(t *testing.T) {
	api := &fakeOpenAI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	personaDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(personaDir, "persona.md"), []byte("You are a ship's cat."), 0o600))
	cfg := loadConfig(t, srv.URL, map[string]string{"MEMORY_MODE": "history", "PERSONA_DIR": personaDir})

	s, err := New(context.Background(), cfg, logger.NewNopLogger())
	require.NoError(t, err)
	assert.Nil(t, s.store, "history mode opens no fact store")
	h := s.web.Handler()

	post(t, h, `{"message":"ahoy","user_id":"7"}`)
	post(t, h, `{"message":"again","user_id":"7"}`)

	assert.Equal(t, "You are a ship's cat.\n\nRecent conversation:\nUser: ahoy\nAssistant: noted\n\nUser: again", api.last())
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	api := &fakeOpenAI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := loadConfig(t, srv.URL, map[string]string{"STORE_DRIVER": "memory", "HTTP_HOST": "127.0.0.1", "HTTP_PORT": strconv.Itoa(port)})
	s, err := New(context.Background(), cfg, logger.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	assert.NoError(t, <-done)
}

func TestModelConfig(t *testing.T) {
	cfg := &appconfig.AppConfig{
		LLM:       appconfig.LLMConfig{Provider: appconfig.ProviderClaude, MaxTokens: 512},
		Anthropic: appconfig.AnthropicConfig{APIKey: "sk-ant", Model: "claude-x", APIBaseURL: "http://localhost:1"},
		Gemini:    appconfig.GeminiConfig{APIKey: "unused"},
	}
	mc := ModelConfig(cfg, nil)
	assert.Equal(t, "claude", mc.Provider)
	assert.Equal(t, "claude-x", mc.Model)
	assert.Equal(t, "sk-ant", mc.APIKey)
	assert.Equal(t, "http://localhost:1", mc.BaseURL)
	assert.Equal(t, int64(512), mc.MaxTokens)
}
