package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingCheck() CheckFunc {
	return func(_ context.Context) error {
		return nil
	}
}

func failingCheck(msg string) CheckFunc {
	return func(_ context.Context) error {
		return errors.New(msg)
	}
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, passingCheck())
	h.AddLivenessCheck("gc", time.Second, passingCheck())

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	w := httptest.NewRecorder()

	h.LiveEndpoint(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
}

func TestLiveEndpoint_FailureThreshold(t *testing.T) {
	h := New()
	h.AddLivenessCheck("db", time.Second, failingCheck("connection refused"))

	ctx := context.Background()
	c := h.livenessChecks[0]

	// Two failures keep the check healthy; the third flips it.
	c.run(ctx)
	c.run(ctx)
	assert.True(t, c.isHealthy())
	c.run(ctx)
	assert.False(t, c.isHealthy())

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	w := httptest.NewRecorder()
	h.LiveEndpoint(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])
}

func TestCheck_RecoversAfterSuccess(t *testing.T) {
	fail := true
	h := New()
	h.AddReadinessCheck("flaky", time.Second, func(_ context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	})

	ctx := context.Background()
	c := h.readinessChecks[0]
	for range 3 {
		c.run(ctx)
	}
	require.False(t, c.isHealthy())

	fail = false
	c.run(ctx)
	assert.True(t, c.isHealthy(), "one success restores health")
}

func TestReadyEndpoint_NotReadyUntilMarked(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, passingCheck())

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	h.SetReady(true)
	assert.True(t, h.IsReady())

	w = httptest.NewRecorder()
	h.ReadyEndpoint(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Draining on shutdown flips readiness off again.
	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestEndpointReachableCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot) // any response counts as reachable
	}))
	defer srv.Close()

	check := EndpointReachableCheck(srv.Client(), srv.URL)
	assert.NoError(t, check(context.Background()))

	srv.Close()
	assert.Error(t, check(context.Background()))
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
