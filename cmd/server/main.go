package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/greetings-service/internal/config"
	api "github.com/tazhibayda/greetings-service/internal/http"
	"github.com/tazhibayda/greetings-service/internal/log"
	"github.com/tazhibayda/greetings-service/internal/metrics"
	"github.com/tazhibayda/greetings-service/internal/queue"
	"github.com/tazhibayda/greetings-service/internal/repo"
	"github.com/tazhibayda/greetings-service/internal/security"
	"github.com/tazhibayda/greetings-service/internal/service"
)

// @title Greetings API
// @version 1.0.0
// @description CRUD and query API for stored greetings.
// @schemes http https
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	logger, err := log.Init(cfg.LogDev)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	if cfg.DDTraceEnabled {
		tracer.Start(tracer.WithService(cfg.ServiceName))
		defer tracer.Stop()
	}
	if !cfg.LogDev {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	store, err := repo.Open(openCtx, repo.Options{
		Driver:       cfg.StoreDriver,
		DatabaseURL:  cfg.DatabaseURL,
		MaxOpenConns: cfg.MaxOpenConns,
		MongoURI:     cfg.MongoURI,
		MongoDB:      cfg.MongoDB,
	})
	cancel()
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	pub := queue.NewNoop()
	if cfg.RabbitURL != "" {
		pub, err = queue.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			return err
		}
	}
	defer pub.Close()

	checks := map[string]api.Pinger{"store": store}
	var limiter api.Limiter
	if cfg.RedisAddr != "" {
		rdb := repo.NewRedis(cfg.RedisAddr)
		defer rdb.Close()
		checks["redis"] = rdb
		if cfg.RateLimitPerMin > 0 {
			limiter = api.NewRedisLimiter(rdb, cfg.RateLimitPerMin, time.Minute)
		}
	} else if cfg.RateLimitPerMin > 0 {
		l := api.NewIPRateLimiter(cfg.RateLimitPerMin, time.Minute)
		go l.Cleanup(ctx, time.Minute)
		limiter = l
	}

	var verifier security.Verifier
	if cfg.AuthJWKSURL != "" {
		verifier = security.NewFetcher(cfg.AuthJWKSURL, time.Duration(cfg.JWKSCacheSeconds)*time.Second)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	svc := service.New(store,
		service.WithPublisher(pub, cfg.RabbitExchange),
		service.WithLogger(logger),
	)
	h := api.NewHandler(svc, checks)
	r := api.NewRouter(h, api.RouterOptions{
		Limiter:  limiter,
		Verifier: verifier,
		Logger:   logger,
		Service:  cfg.ServiceName,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe() }()

	logger.Info("greetings-service listening",
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreDriver),
		zap.Bool("events", cfg.RabbitURL != ""),
		zap.Bool("auth", verifier != nil),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-srvErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
