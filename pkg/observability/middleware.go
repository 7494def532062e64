package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MetricsMiddleware records RequestsTotal and RequestDuration for every
// request, labelled with the ServeMux pattern that matched ("unmatched" when
// none did). Responses sent as text/event-stream count towards
// StreamingConnections until the handler returns.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &recorder{ResponseWriter: w}
		defer func() {
			if rec.streaming {
				StreamingConnections.Dec()
			}
		}()

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		RequestsTotal.WithLabelValues(r.Method, route, statusClass(rec.status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func statusClass(code int) string {
	if code == 0 {
		code = http.StatusOK
	}
	return strconv.Itoa(code/100) + "xx"
}

type recorder struct {
	http.ResponseWriter
	status    int
	streaming bool
}

func (r *recorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
		if strings.HasPrefix(r.Header().Get("Content-Type"), "text/event-stream") {
			r.streaming = true
			StreamingConnections.Inc()
		}
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}

func (r *recorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *recorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
