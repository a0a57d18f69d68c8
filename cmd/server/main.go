package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"garden-monitor/internal/httpapi"
	"garden-monitor/internal/ingest"
	"garden-monitor/internal/irrigation"
	"garden-monitor/internal/observability/metrics"
	"garden-monitor/internal/storage/postgres"
	mqttpkg "garden-monitor/pkg/mqtt"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Store ---
	// The only fatal errors in this process: without the store at startup
	// there is nothing to run.
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("db ping failed: %v", err)
	}

	store := postgres.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema init failed: %v", err)
	}

	metrics.Init()

	// --- MQTT subscriber ---
	mqttClient, err := mqttpkg.NewConn(ctx, &mqttpkg.Config{
		Host:     cfg.BrokerHost,
		Port:     cfg.BrokerPort,
		User:     cfg.BrokerUser,
		Password: cfg.BrokerPassword,
		ClientID: cfg.ClientID,
	})
	if err != nil {
		log.Fatalf("mqtt connect failed: %v", err)
	}
	defer mqttpkg.CloseConn(mqttClient)

	consumer := mqttpkg.NewConsumer(mqttClient, cfg.Topic, 1, nil)
	subscriber := ingest.NewService(consumer, store, cfg.Topic, cfg.StoreTimeout)
	go subscriber.Start(ctx)

	// --- HTTP ---
	api := httpapi.NewServer(store, irrigation.NewKeeper(), httpapi.Options{
		BreakerFailures: uint32(cfg.BreakerFailures),
		BreakerOpenFor:  cfg.BreakerOpenFor,
	})
	mux := api.Routes()
	mux.Handle("/healthz", httpapi.NewHealthHandler(mqttClient, db))
	mux.Handle("/metrics", promhttp.Handler())

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("server: HTTP listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	stop()
	log.Println("server: shutting down...")

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	log.Println("server: shutdown complete")
}
