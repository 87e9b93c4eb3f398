package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingMeter struct {
	noop.Meter
}

func (failingMeter) Float64Histogram(string, ...metric.Float64HistogramOption) (metric.Float64Histogram, error) {
	return nil, errors.New("duplicate instrument")
}

func TestLogRequests(t *testing.T) {
	handler := LogRequests(zap.NewNop(), noop.NewMeterProvider().Meter("test"))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogRequests_HistogramRegistrationFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	handler := LogRequests(zap.New(core), failingMeter{})(okHandler())

	// The failure is logged once at construction, not per request.
	entries := logs.FilterMessage("register request duration histogram").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "duplicate instrument")

	// Requests still flow without the instrument.
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Len(t, logs.FilterMessage("register request duration histogram").All(), 1)
}
