package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/hashicorp/go-metrics"
)

// Metrics records the number and latency of requests, labeled by route
// pattern and response code.
func Metrics(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			code := http.StatusOK
			w = httpsnoop.Wrap(w, httpsnoop.Hooks{
				WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
					return func(c int) {
						code = c
						next(c)
					}
				},
			})

			next.ServeHTTP(w, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			labels := []metrics.Label{
				{Name: "route", Value: route},
				{Name: "code", Value: strconv.Itoa(code)},
			}
			m.IncrCounterWithLabels([]string{"http", "requests"}, 1, labels)
			m.MeasureSinceWithLabels([]string{"http", "request"}, start, labels)
		})
	}
}
