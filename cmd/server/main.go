package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tkhr/ecopoints/internal/middleware"
	"github.com/tkhr/ecopoints/internal/models"
	"github.com/tkhr/ecopoints/internal/session"
	"github.com/tkhr/ecopoints/internal/storage/sqlite"
	"github.com/tkhr/ecopoints/internal/web"
	"github.com/tkhr/ecopoints/pkg/logging"
)

const sessionDuration = 7 * 24 * time.Hour

// defaultCatalog is seeded at every start; existing items are left untouched.
var defaultCatalog = []models.Item{
	{Name: "Water", PricePoints: 10},
	{Name: "Drink", PricePoints: 15},
	{Name: "Can", PricePoints: 20},
	{Name: "Snacks", PricePoints: 25},
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.Setup()

	port := getEnv("PORT", "8080")
	dbPath := getEnv("DB_PATH", "./data/ecopoints.db")
	sessionSecret := getEnv("SESSION_SECRET", "dev-only-session-secret-change-me")

	// Initialize SQLite storage
	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	// Seeding must complete before the listener starts accepting traffic.
	if err := store.SeedItems(context.Background(), defaultCatalog); err != nil {
		slog.Error("Failed to seed catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("Catalog seeded", "items", len(defaultCatalog))

	sessions := session.NewManager(sessionSecret, sessionDuration)
	handler := web.New(store, sessions)

	mux := http.NewServeMux()
	mux.Handle("/", handler.Routes())
	mux.Handle("GET /metrics", promhttp.Handler())

	// Add logging and metrics middleware
	wrapped := middleware.Logging(middleware.Metrics(mux))

	// Wrap with h2c for HTTP/2 without TLS
	h2cHandler := h2c.NewHandler(wrapped, &http2.Server{})

	addr := fmt.Sprintf(":%s", port)
	slog.Info("Server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
