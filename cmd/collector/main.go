package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shortbox/shortbox/internal/logbuf"
)

// A development stand-in for the remote log collector: it accepts the JSON
// entries the server relays and echoes them through zap. Point the server
// at it with --collector http://localhost:9990/logs.
func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	addr := getEnv("COLLECTOR_ADDR", ":9990")

	receive := func(w http.ResponseWriter, r *http.Request) {
		var entry logbuf.Entry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			http.Error(w, "malformed log entry", http.StatusBadRequest)

			return
		}

		logger.Info("entry received",
			zap.Time("timestamp", entry.Timestamp),
			zap.String("stack", entry.Stack),
			zap.String("level", string(entry.Level)),
			zap.String("package", entry.Package),
			zap.String("message", entry.Message),
		)

		w.WriteHeader(http.StatusAccepted)
	}

	router := chi.NewMux()
	router.Post("/", receive)
	router.Post("/logs", receive)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("collector listening", zap.String("addr", addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("collector failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return defaultValue
}
