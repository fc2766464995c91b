package logger

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// SlowRequestThreshold is the duration above which a request counts as slow
var SlowRequestThreshold = 2 * time.Second

// Middleware logs one line per request and feeds the HTTP counters. It
// replaces chi's text logger so request logs share the JSON format.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote", r.RemoteAddr,
		}

		if elapsed > SlowRequestThreshold {
			WarnSlowRequest()
		}

		switch {
		case status >= 500:
			ErrorHttp5xx()
			Logger.ErrorContext(r.Context(), "request failed", args...)
		case status >= 400:
			WarnHttp4xx(status)
			Logger.WarnContext(r.Context(), "request rejected", args...)
		default:
			Logger.InfoContext(r.Context(), "request", args...)
		}
	})
}
