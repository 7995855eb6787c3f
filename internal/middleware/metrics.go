package middleware

import (
	"net/http"
	"strconv"

	"dreamlab/internal/metrics"
)

// Metrics counts requests by chi route pattern so ids do not explode label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		metrics.RequestsTotal.WithLabelValues(r.Method, routePattern(r), strconv.Itoa(rw.status)).Inc()
	})
}
