// Package internal hosts operator-facing plumbing that is not part of the
// broker's public surface.
package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// StatsProvider returns the metrics snapshot served at /stats.
type StatsProvider func() any

// StartDebugServer exposes liveness and metrics for operators on its own
// port, away from the client-facing listener. It never blocks the caller.
func StartDebugServer(port int, stats StatsProvider) {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		payload := any(map[string]string{"status": "no stats provider"})
		if stats != nil {
			payload = stats()
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		_ = server.ListenAndServe()
	}()
}
