package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/guaracyalima/xeco-public-sub002/orders-service/internal/config"
	"github.com/guaracyalima/xeco-public-sub002/orders-service/internal/consumer"
	ordershttp "github.com/guaracyalima/xeco-public-sub002/orders-service/internal/http"
	"github.com/guaracyalima/xeco-public-sub002/orders-service/internal/repository"
	"github.com/guaracyalima/xeco-public-sub002/pkg/docstore"
	"github.com/guaracyalima/xeco-public-sub002/pkg/envconfig"
	"github.com/guaracyalima/xeco-public-sub002/pkg/httpapi"
	"github.com/guaracyalima/xeco-public-sub002/pkg/logger"
	"github.com/guaracyalima/xeco-public-sub002/pkg/metrics"
)

type mongoPinger struct{ db *mongo.Database }

func (p mongoPinger) Ping(ctx context.Context) error { return p.db.Client().Ping(ctx, nil) }

func main() {
	log.Println("orders-service starting...")
	var wg sync.WaitGroup

	cfg, err := config.LoadConfig(envconfig.GetEnv("CONFIG_FILE", "config.yaml"))
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	lg := logger.New("orders-service", cfg.LogLevel)

	auth, err := httpapi.NewAuthenticator(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Failed to create authenticator: %v", err)
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := docstore.Connect(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	cancelConnect()
	if err != nil {
		log.Fatalf("Failed to connect to document store: %v", err)
	}
	defer db.Client().Disconnect(context.Background())

	repo := repository.NewRepository(docstore.New(db).WithLogger(lg), lg)
	if err := repo.EnsureIndexes(context.Background()); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	// Start Kafka consumer
	kafkaConsumer := consumer.NewConsumer(repo, consumer.Config{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.Topic,
		GroupID:     cfg.Kafka.GroupID,
		MaxAttempts: cfg.Kafka.MaxAttempts,
	}, lg)
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		kafkaConsumer.Run(consumerCtx)
	}()

	// Start HTTP server
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	router := ordershttp.NewRouter(ordershttp.RouterConfig{
		Orders:   ordershttp.NewOrdersHandler(repo, cfg.RequestTimeout, lg),
		Auth:     auth,
		Metrics:  metrics.NewServerMetrics(registry, "orders"),
		Gatherer: registry,
		Store:    mongoPinger{db: db},
	})
	// no WriteTimeout: the order stream is long-lived
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           otelhttp.NewHandler(router, "orders-service"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Orders service listening on :%s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down orders service...")
	consumerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Println("Consumer stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("Consumer didn't stop in time")
	}

	kafkaConsumer.Close()
	log.Println("Orders service stopped")
}
