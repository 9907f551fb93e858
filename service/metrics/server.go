package metrics

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/khaledhikmat/dfd-go/service/lgr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// StartServer serves /metrics and /healthz until the returned server is
// shut down.
func StartServer(port int) *http.Server {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: NewMux(),
	}

	go func() {
		lgr.Logger.Info("metrics server starting", slog.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lgr.Logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	return srv
}
