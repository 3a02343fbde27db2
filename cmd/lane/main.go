package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-checkout/internal/basket"
	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/config"
	"github.com/noah-isme/toko-checkout/internal/health"
	"github.com/noah-isme/toko-checkout/internal/lane"
	"github.com/noah-isme/toko-checkout/internal/obs"
	"github.com/noah-isme/toko-checkout/internal/ratelimit"
	"github.com/noah-isme/toko-checkout/internal/resilience"
	"github.com/noah-isme/toko-checkout/internal/security"
	"github.com/noah-isme/toko-checkout/internal/user"
	"github.com/noah-isme/toko-checkout/internal/warehouse"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().
		Str("env", cfg.AppEnv).
		Str("lane", cfg.LaneID).
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
		resilience.MustRegisterMetrics(cfg.MetricsNamespace, nil)
	}

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   obs.DefaultServiceName,
			Endpoint:      cfg.OTLPEndpoint,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	probes := map[string]health.Probe{}
	var (
		ledger  warehouse.Ledger
		limiter ratelimit.Limiter
		idem    security.Idempotency
	)
	switch cfg.StockBackend {
	case config.StockBackendRedis:
		redisClient := connectRedis(ctx, cfg, logger)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		breaker := resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).
			WithTarget("stock-ledger").
			WithLogger(logger)
		ledger = warehouse.GuardedLedger{
			Ledger:  warehouse.NewRedisLedger(redisClient, cfg.StockKeyPrefix),
			Breaker: breaker,
		}
		limiter = ratelimit.SlidingWindow{Client: redisClient, Prefix: "ratelimit:"}
		idem = security.Idempotency{Client: redisClient, Prefix: "idem:" + cfg.LaneID + ":", TTL: 10 * time.Minute}
		probes["redis"] = health.RedisProbe(redisClient)
	default:
		ledger = warehouse.NewMemoryLedger()
		limiter = ratelimit.NewFixedWindow("ratelimit:")
	}

	registry := catalog.NewRegistry()
	wh := warehouse.New(warehouse.Config{Ledger: ledger, Currency: cfg.Currency, Logger: &logger})
	seedRandom := cfg.SeedRandom
	if seedRandom == 0 {
		seedRandom = time.Now().UnixNano()
	}
	seeds, err := warehouse.Generate(registry, cfg.SeedItems, rand.New(rand.NewSource(seedRandom)))
	if err != nil {
		logger.Fatal().Err(err).Msg("generate inventory")
	}
	if err := wh.Seed(ctx, seeds); err != nil {
		logger.Fatal().Err(err).Msg("seed inventory")
	}
	probes["inventory"] = func(ctx context.Context) error {
		_, err := wh.ListInventory(ctx)
		return err
	}

	shopper, err := user.New(cfg.ShopperFirstName, cfg.ShopperLastName, "")
	if err != nil {
		logger.Fatal().Err(err).Msg("create shopper")
	}
	b, err := basket.New(shopper, wh, basket.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("create basket")
	}

	var (
		httpMetrics    *obs.HTTPMetrics
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBucketsMS), nil)
		metricsHandler = promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
	}

	router := lane.NewRouter(lane.RouterConfig{
		Lane:           cfg.LaneID,
		Handler:        &lane.Handler{Registry: registry, Warehouse: wh, Basket: b, Logger: logger},
		Health:         health.Handler{Probes: probes},
		Logger:         logger,
		HTTPMetrics:    httpMetrics,
		MetricsHandler: metricsHandler,
		Tracing:        tracingEnabled,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		BodyLimit:      cfg.BodyLimitBytes,
		RateLimit: ratelimit.Handler{
			Limiter: limiter,
			Config: ratelimit.Config{
				Key:    ratelimit.ClientKey(cfg.LaneID + ":"),
				Window: time.Minute,
				Max:    cfg.RateLimitPerMinute,
			},
			OnError: func(err error) {
				logger.Warn().Err(err).Msg("rate limiter unavailable")
			},
		},
		Idempotency: idem,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Int("items", len(seeds)).Str("backend", cfg.StockBackend).Msg("lane starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("lane exited unexpectedly")
		}
	case <-ctx.Done():
	}

	health.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown http server")
	}
	// Held units go back to the ledger before exit.
	if err := b.Empty(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("return basket to warehouse")
	}
	logger.Info().Msg("lane stopped")
}

func connectRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client
}
