package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestChecker_NoChecksIsHealthy(t *testing.T) {
	c := New()

	status, err := c.Liveness(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Empty(t, status.Checks)
}

func TestChecker_MixedResults(t *testing.T) {
	c := New()
	c.AddReadinessCheck(NewCheckFunc("ok", func(context.Context) error { return nil }))
	c.AddReadinessCheck(NewPingCheck("store", stubPinger{err: errors.New("database is locked")}))

	status, err := c.Readiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store")
	assert.False(t, status.Healthy)
	require.Len(t, status.Checks, 2)

	assert.Equal(t, "ok", status.Checks[0].Name)
	assert.True(t, status.Checks[0].Healthy)
	assert.Equal(t, "store", status.Checks[1].Name)
	assert.False(t, status.Checks[1].Healthy)
	assert.Equal(t, "database is locked", status.Checks[1].Error)
}

func TestChecker_FailureThreshold(t *testing.T) {
	fail := true
	c := New(WithFailureThreshold(2))
	c.AddLivenessCheck(NewCheckFunc("flaky", func(context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	}))

	status, err := c.Liveness(context.Background())
	require.NoError(t, err, "first failure is below threshold")
	assert.True(t, status.Healthy)

	status, err = c.Liveness(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)

	fail = false
	status, err = c.Liveness(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)

	fail = true
	_, err = c.Liveness(context.Background())
	assert.NoError(t, err, "counter resets after success")
}

func TestChecker_Timeout(t *testing.T) {
	c := New(WithTimeout(20 * time.Millisecond))
	c.AddLivenessCheck(NewCheckFunc("slow", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}))

	status, err := c.Liveness(context.Background())
	require.Error(t, err)
	assert.Contains(t, status.Checks[0].Error, context.DeadlineExceeded.Error())
}

func TestHandlers(t *testing.T) {
	c := New()
	c.AddLivenessCheck(NewCheckFunc("process", func(context.Context) error { return nil }))
	c.AddReadinessCheck(NewPingCheck("store", stubPinger{err: errors.New("closed")}))

	t.Run("liveness ok", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body Response
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "ok", body.Checks["process"].Status)
	})

	t.Run("readiness failing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body Response
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, "error", body.Checks["store"].Status)
		assert.Equal(t, "closed", body.Checks["store"].Error)
		assert.NotEmpty(t, body.Message)
	})
}
