package httpmiddleware

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// statusWriter captures the response status code for logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// LogRequests returns a middleware that writes one structured access log
// line per request and records request duration on the given meter.
// Durations are bucketed by route pattern, method, and status class.
// A failed instrument registration is logged once here and requests then
// proceed without the histogram.
func LogRequests(lg *zap.Logger, meter metric.Meter) Middleware {
	duration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithUnit("s"),
		metric.WithDescription("HTTP request duration"),
	)
	if err != nil {
		lg.Error("register request duration histogram", zap.Error(err))
		duration = nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			elapsed := time.Since(start)
			if duration != nil {
				duration.Record(r.Context(), elapsed.Seconds(),
					metric.WithAttributes(
						attribute.String("http.request.method", r.Method),
						attribute.Int("http.response.status_code", sw.status),
					),
				)
			}

			zctx.From(r.Context()).Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", elapsed),
				zap.String("request_id", RequestIDFromContext(r.Context())),
			)
		})
	}
}
