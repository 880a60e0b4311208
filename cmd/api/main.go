package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"example.com/wellness/internal/api"
	"example.com/wellness/internal/auth"
	"example.com/wellness/internal/config"
	"example.com/wellness/internal/events"
	"example.com/wellness/internal/kv"
	"example.com/wellness/internal/logging"
	httptransport "example.com/wellness/internal/transport/http"
	"example.com/wellness/internal/weather"
)

func main() {
	devToken := flag.String("dev-token", "", "print a signed token for the given subject and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	authCfg := auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}
	if *devToken != "" {
		token, err := auth.Issue(authCfg, *devToken, []string{auth.ScopeRead, auth.ScopeWrite}, 24*time.Hour)
		if err != nil {
			logger.WithError(err).Fatal("issue dev token")
		}
		fmt.Println(token)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := kv.Open(ctx, cfg.Storage)
	if err != nil {
		logger.WithError(err).WithField("driver", cfg.Storage.Driver).Fatal("failed to open slot store")
	}
	defer func() {
		if err := kv.Close(store); err != nil {
			logger.WithError(err).Warn("close slot store")
		}
	}()

	opts := []api.Option{api.WithLogger(logging.Component(logger, "api"))}
	if cfg.EventsEnabled {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		opts = append(opts, api.WithPublisher(publisher))
	}
	if cfg.Weather.APIKey != "" {
		opts = append(opts, api.WithWeather(weather.NewClient(cfg.Weather, weather.WithLogger(logging.Component(logger, "weather")))))
	}

	handler := api.NewHandler(store, opts...)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	limiter := httptransport.NewRateLimiter(cfg.RateLimit, cfg.RateBurst, logging.Component(logger, "ratelimit"))
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Reset(10000)
			}
		}
	}()

	authMiddleware := auth.NewMiddleware(authCfg, auth.PublicPaths)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, httptransport.Chain(mux,
		httptransport.RequestLogger(logging.Component(logger, "http")),
		httptransport.CORS(cfg.CORSOrigin),
		authMiddleware.Wrap,
		limiter.Handler,
	))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithFields(logrus.Fields{"addr": cfg.HTTPAddress, "driver": cfg.Storage.Driver}).Info("wellness api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown failed")
	}
	if err := handler.Flush(shutdownCtx); err != nil {
		logger.WithError(err).Warn("pending writes abandoned at shutdown")
	}
}
