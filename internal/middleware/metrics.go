package middleware

import (
	"net/http"
	"time"
)

type requestRecorder interface {
	RecordRequest(method string, status int, duration time.Duration)
}

// Metrics counts every served request by method and status.
func Metrics(rec requestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)
			rec.RecordRequest(r.Method, sr.status, time.Since(start))
		})
	}
}
