package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/cache"
	"github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/config"
	checkoutgrpc "github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/grpc"
	checkouthttp "github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/http"
	"github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/publisher"
	"github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/repository"
	"github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/resolver"
	"github.com/guaracyalima/xeco-public-sub002/checkout-service/internal/service"
	"github.com/guaracyalima/xeco-public-sub002/pkg/docstore"
	"github.com/guaracyalima/xeco-public-sub002/pkg/envconfig"
	"github.com/guaracyalima/xeco-public-sub002/pkg/gateway"
	"github.com/guaracyalima/xeco-public-sub002/pkg/httpapi"
	"github.com/guaracyalima/xeco-public-sub002/pkg/logger"
	"github.com/guaracyalima/xeco-public-sub002/pkg/metrics"
	"github.com/guaracyalima/xeco-public-sub002/pkg/relay"
	"github.com/guaracyalima/xeco-public-sub002/pkg/retry"
	"github.com/guaracyalima/xeco-public-sub002/pkg/signature"
	"github.com/guaracyalima/xeco-public-sub002/pkg/split"
)

type mongoPinger struct{ db *mongo.Database }

func (p mongoPinger) Ping(ctx context.Context) error { return p.db.Client().Ping(ctx, nil) }

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

func main() {
	log.Println("checkout-service starting...")

	cfg, err := config.LoadConfig(envconfig.GetEnv("CONFIG_FILE", "config.yaml"))
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	lg := logger.New("checkout-service", cfg.LogLevel)

	guard, err := signature.NewGuard(cfg.SigningSecret)
	if err != nil {
		log.Fatalf("Failed to create signature guard: %v", err)
	}
	calculator, err := split.NewCalculator(cfg.PlatformFee())
	if err != nil {
		log.Fatalf("Failed to create split calculator: %v", err)
	}
	auth, err := httpapi.NewAuthenticator(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Failed to create authenticator: %v", err)
	}

	// Database setup
	creds := &repository.Credentials{
		Host:              cfg.Database.Host,
		Port:              cfg.Database.Port,
		User:              cfg.Database.User,
		Password:          cfg.Database.Password,
		DBName:            cfg.Database.Name,
		SSLMode:           cfg.Database.SSLMode,
		MigrationsDirPath: cfg.Database.MigrationsPath,
	}
	repo, err := repository.NewRepository(creds)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Document store and lookup cache
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	mongoDB, err := docstore.Connect(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	cancelConnect()
	if err != nil {
		log.Fatalf("Failed to connect to document store: %v", err)
	}
	defer mongoDB.Client().Disconnect(context.Background())
	store := docstore.New(mongoDB).WithLogger(lg)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// the resolver falls through to the store on cache errors
		lg.Warn("redis unavailable at startup", "addr", cfg.Redis.Addr, "error", err)
	}
	lookups := resolver.New(store, cache.NewRedisCache(redisClient, cfg.Redis.CacheTTL), lg)

	relayClient, err := relay.NewClient(relay.Config{
		BaseURL:            cfg.Relay.URL,
		Timeout:            cfg.Relay.Timeout,
		BreakerThreshold:   cfg.Relay.BreakerThreshold,
		BreakerOpenTimeout: cfg.Relay.BreakerOpenTimeout,
	}, lg)
	if err != nil {
		log.Fatalf("Failed to create relay client: %v", err)
	}

	checkoutService := service.NewCheckoutService(repo, lookups, relayClient, store, guard, calculator, service.Options{
		Retry: retry.Policy{
			MaxAttempts: cfg.Relay.MaxAttempts,
			Delay:       retry.Exponential(cfg.Relay.Backoff, cfg.Relay.MaxBackoff),
		},
		Callbacks: gateway.Callback{
			SuccessURL: cfg.Callbacks.SuccessURL,
			CancelURL:  cfg.Callbacks.CancelURL,
			ExpiredURL: cfg.Callbacks.ExpiredURL,
		},
		Logger: lg,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := publisher.NewOutboxPoller(repo, publisher.Config{
		Brokers:    cfg.Kafka.Brokers,
		Topic:      cfg.Kafka.Topic,
		StaleAfter: cfg.StaleSessionAfter,
	}, lg)
	go poller.Run(ctx)
	log.Printf("Outbox poller publishing to %s", cfg.Kafka.Topic)

	checks := map[string]checkouthttp.Pinger{
		"postgres": repo,
		"mongo":    mongoPinger{db: mongoDB},
		"redis":    redisPinger{client: redisClient},
	}

	// HTTP server
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	router := checkouthttp.NewRouter(checkouthttp.RouterConfig{
		Checkout: checkouthttp.NewCheckoutHandler(checkoutService, cfg.RequestTimeout, lg),
		Webhook:  checkouthttp.NewWebhookHandler(checkoutService, cfg.WebhookToken, lg),
		Auth:     auth,
		Metrics:  metrics.NewServerMetrics(registry, "checkout"),
		Gatherer: registry,
		Checks:   checks,
		Timeout:  cfg.RequestTimeout + 5*time.Second,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           otelhttp.NewHandler(router, "checkout-service"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Checkout HTTP listening on :%s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// gRPC health server
	grpcChecks := make(map[string]checkoutgrpc.Pinger, len(checks))
	for name, check := range checks {
		grpcChecks[name] = check
	}
	grpcServer := checkoutgrpc.NewServer(grpcChecks, lg)
	go grpcServer.RunHealthChecks(ctx, 10*time.Second)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	go func() {
		log.Printf("Checkout gRPC health listening on :%s", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down checkout service...")
	grpcServer.GracefulStop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	cancel()
	if err := poller.Close(); err != nil {
		log.Printf("Failed to close Kafka writer: %v", err)
	}

	log.Println("Checkout service stopped")
}
