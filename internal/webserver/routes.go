package webserver

import (
	"fmt"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/mlbench/benchdash/internal/webapi"
	"golang.org/x/sync/semaphore"
)

// requestsPerWorker scales server.workers into the number of requests
// handled at once.
const requestsPerWorker = 16

// buildHandler wires the API routes and wraps them, outermost first, with
// request logging, CORS, the in-flight limit and response compression.
func buildHandler(cfg Config) (http.Handler, error) {
	mux := http.NewServeMux()
	webapi.RegisterRoutes(mux, webapi.NewHandlers(cfg.Store, cfg.Aggregation, cfg.Logger))

	gz, err := gzhttp.NewWrapper(gzhttp.MinSize(1024))
	if err != nil {
		return nil, fmt.Errorf("configuring compression: %w", err)
	}

	var h http.Handler = gz(mux)
	h = limitInFlight(h, int64(cfg.Workers*requestsPerWorker))
	h = webapi.CORSMiddleware(h, cfg.AllowedOrigins...)
	h = webapi.LoggingMiddleware(h, cfg.Logger)
	return h, nil
}

// limitInFlight bounds concurrently served requests. A request that gives
// up while waiting for a slot gets 503.
func limitInFlight(next http.Handler, n int64) http.Handler {
	sem := semaphore.NewWeighted(n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := sem.Acquire(r.Context(), 1); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"error":"server busy","code":%q,"status":%d}`+"\n", webapi.CodeUnavailable, http.StatusServiceUnavailable)
			return
		}
		defer sem.Release(1)
		next.ServeHTTP(w, r)
	})
}
