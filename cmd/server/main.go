package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yusufkecer/health-data-client/internal/config"
	"github.com/yusufkecer/health-data-client/internal/handler"
	"github.com/yusufkecer/health-data-client/internal/healthdata"
	"github.com/yusufkecer/health-data-client/internal/metrics"
	"github.com/yusufkecer/health-data-client/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	upstreamMetrics := metrics.NewUpstream(reg)
	gatewayMetrics := metrics.NewGateway(reg)

	// One client, and so one connection pool, shared by every per-user reader.
	httpClient := &http.Client{
		Timeout:   cfg.UpstreamTimeout,
		Transport: upstreamMetrics.RoundTripper(nil),
	}
	readers := func(userID string) handler.Reader {
		return healthdata.New(cfg.HealthDataURL, userID, cfg.AuthToken, healthdata.WithHTTPClient(httpClient))
	}
	pinger := healthdata.New(cfg.HealthDataURL, "", cfg.AuthToken, healthdata.WithHTTPClient(httpClient))

	router := handler.NewRouter(handler.RouterConfig{
		Health:         handler.NewHealthHandler(readers),
		Probe:          handler.NewProbeHandler(pinger, 3*time.Second),
		Metrics:        metrics.Handler(reg),
		Instrument:     gatewayMetrics.Middleware,
		RateLimiter:    middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		APIKey:         cfg.APIKey,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	log.Printf("[gateway] starting on %s, upstream %s", srv.Addr, cfg.HealthDataURL)
	if err := serve(ctx, srv, ln, 15*time.Second); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("[gateway] stopped")
}

// serve runs srv on ln until ctx is done, then drains in-flight requests for
// up to drain. It returns only after the drain has finished.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, drain time.Duration) error {
	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
		defer cancel()
		done <- srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-done; err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
