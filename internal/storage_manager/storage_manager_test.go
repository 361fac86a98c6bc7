package storage_manager //nolint:revive // var-naming

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFileProvider(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := NewLocalFileProvider(dir)

	_, err := p.Read(ctx, "persona.md")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := p.Exists(ctx, "persona.md")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.Write(ctx, "nested/persona.md", []byte("be brief")))
	data, err := os.ReadFile(filepath.Join(dir, "nested", "persona.md"))
	require.NoError(t, err)
	assert.Equal(t, "be brief", string(data))

	got, err := p.Read(ctx, "nested/persona.md")
	require.NoError(t, err)
	assert.Equal(t, "be brief", string(got))

	ok, err = p.Exists(ctx, "nested/persona.md")
	require.NoError(t, err)
	assert.True(t, ok)
}

// fakeS3 serves a tiny path-style subset of the S3 REST API.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	puts    []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		f.puts = append(f.puts, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := f.objects[r.URL.Path]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
			return
		}
		_, _ = w.Write([]byte(body))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3(t *testing.T, fake *fakeS3) *s3.Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials:  aws.AnonymousCredentials{},
	})
}

func TestS3FileProvider(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string]string{"/relay-bucket/prompts/persona.md": "You are terse."}}
	mgr, err := New(ctx, Config{
		Backend: BackendS3,
		S3:      S3Config{Bucket: "relay-bucket", Prefix: "prompts", Client: newTestS3(t, fake)},
	})
	require.NoError(t, err)
	assert.Equal(t, BackendS3, mgr.Backend())
	p := mgr.Provider()

	data, err := p.Read(ctx, "persona.md")
	require.NoError(t, err)
	assert.Equal(t, "You are terse.", string(data))

	_, err = p.Read(ctx, "missing.md")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := p.Exists(ctx, "persona.md")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Exists(ctx, "missing.md")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.Write(ctx, "persona.md", []byte("new")))
	assert.Equal(t, []string{"/relay-bucket/prompts/persona.md"}, fake.puts)
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Config{Backend: BackendLocal})
	assert.Error(t, err)

	_, err = New(ctx, Config{Backend: BackendS3})
	assert.Error(t, err)

	_, err = New(ctx, Config{Backend: "git"})
	assert.Error(t, err)

	mgr, err := New(ctx, Config{Backend: BackendLocal, BaseDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalFileProvider{}, mgr.Provider())
}
