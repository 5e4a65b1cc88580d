package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// Recorder exposes the status and size of a response after the handler ran.
type Recorder struct {
	middleware.WrapResponseWriter
}

// NewStatusRecorder wraps w with chi's response writer, which keeps the
// Flusher and Hijacker interfaces of the underlying writer.
func NewStatusRecorder(w http.ResponseWriter, r *http.Request) Recorder {
	return Recorder{middleware.NewWrapResponseWriter(w, r.ProtoMajor)}
}

// Status reports 200 for handlers that never wrote a header.
func (rec Recorder) Status() int {
	if s := rec.WrapResponseWriter.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}

// HTTPObs records request counts, latency and in-flight requests. Routes are
// labelled by chi pattern so /orders/{id} stays one series.
type HTTPObs struct {
	Metrics *HTTPMetrics
}

func (o HTTPObs) Middleware(next http.Handler) http.Handler {
	if o.Metrics == nil {
		return next
	}
	m := o.Metrics
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.InFlight.Inc()
		defer m.InFlight.Dec()

		rec := NewStatusRecorder(w, r)
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := RouteOf(r, "unmatched")
		m.ReqTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.Status())).Inc()
		m.ReqDur.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// TracingMiddleware opens a server span per request. The span starts under
// the raw path and is renamed to "METHOD pattern" after routing.
func TracingMiddleware(next http.Handler) http.Handler {
	rename := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if route := RouteOf(r, ""); route != "" {
			trace.SpanFromContext(r.Context()).SetName(r.Method + " " + route)
		}
	})
	return otelhttp.NewHandler(rename, "http.server",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string { return r.Method + " " + r.URL.Path }),
	)
}
