package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/guaracyalima/xeco-public-sub002/pkg/envconfig"
	"github.com/guaracyalima/xeco-public-sub002/pkg/gateway"
	"github.com/guaracyalima/xeco-public-sub002/pkg/logger"
	"github.com/guaracyalima/xeco-public-sub002/pkg/metrics"
	"github.com/guaracyalima/xeco-public-sub002/pkg/signature"
	"github.com/guaracyalima/xeco-public-sub002/pkg/split"
	"github.com/guaracyalima/xeco-public-sub002/relay-service/internal/config"
	relayhttp "github.com/guaracyalima/xeco-public-sub002/relay-service/internal/http"
	"github.com/guaracyalima/xeco-public-sub002/relay-service/internal/service"
)

func main() {
	log.Println("relay-service starting...")

	cfg, err := config.LoadConfig(envconfig.GetEnv("CONFIG_FILE", "config.yaml"))
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	lg := logger.New("relay-service", cfg.LogLevel)

	guard, err := signature.NewGuard(cfg.SigningSecret)
	if err != nil {
		log.Fatalf("Failed to create signature guard: %v", err)
	}
	calculator, err := split.NewCalculator(cfg.PlatformFee())
	if err != nil {
		log.Fatalf("Failed to create split calculator: %v", err)
	}
	gw, err := gateway.NewClient(gateway.Config{
		BaseURL: cfg.Gateway.URL,
		APIKey:  cfg.Gateway.APIKey,
		Timeout: cfg.Gateway.Timeout,
	}, lg)
	if err != nil {
		log.Fatalf("Failed to create gateway client: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := service.NewRelayService(guard, calculator, gw, service.CheckoutOptions{
		BillingTypes:    cfg.Checkout.BillingTypes,
		ChargeTypes:     cfg.Checkout.ChargeTypes,
		MinutesToExpire: cfg.Checkout.MinutesToExpire,
		MaxInstallments: cfg.Checkout.MaxInstallments,
	}, registry, lg)

	router := relayhttp.NewRouter(relayhttp.RouterConfig{
		Relay:    relayhttp.NewRelayHandler(svc, cfg.RequestTimeout, lg),
		BasePath: cfg.BasePath,
		Metrics:  metrics.NewServerMetrics(registry, "relay"),
		Gatherer: registry,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           otelhttp.NewHandler(router, "relay-service"),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}
	go func() {
		log.Printf("Relay service listening on :%s%s", cfg.HTTPPort, cfg.BasePath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down relay service...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	log.Println("Relay service stopped")
}
