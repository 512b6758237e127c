// Package app wires the configuration, storage, domain services and HTTP
// server of the ordering API.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xenking/littlelemon/internal/domain/auth"
	"github.com/xenking/littlelemon/internal/domain/cart"
	"github.com/xenking/littlelemon/internal/domain/order"
	"github.com/xenking/littlelemon/internal/handler"
	"github.com/xenking/littlelemon/pkg/health"
	"github.com/xenking/littlelemon/pkg/httpmiddleware"
)

const serviceName = "littlelemon-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m httpmiddleware.TelemetryProvider, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("events", cfg.Events.Driver),
	)

	healthSvc := health.New()

	repos, err := openStorage(ctx, cfg, healthSvc)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer repos.close()

	if err := applySeed(ctx, repos.Seeder, cfg.Storage.SeedFiles); err != nil {
		return err
	}

	pub, err := openPublisher(ctx, cfg.Events)
	if err != nil {
		return errors.Wrap(err, "open publisher")
	}
	if pub != nil {
		defer func() {
			if err := pub.Close(); err != nil {
				lg.Warn("Close publisher", zap.Error(err))
			}
		}()
	}

	healthSvc.Add(health.Check{
		Name:    "goroutines",
		Kind:    health.Liveness,
		Timeout: time.Second,
		Func:    health.GoroutineCountCheck(10000),
	})
	healthSvc.Add(health.Check{
		Name:    "gc-pause",
		Kind:    health.Liveness,
		Timeout: time.Second,
		Func:    health.GCMaxPauseCheck(time.Second),
	})
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	h, err := newHandler(ctx, cfg, repos, pub, healthSvc, m)
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           h,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newHandler builds the domain services over repos and returns the fully
// wrapped HTTP handler: API routes, health probes and the middleware chain.
// A nil pub disables order events.
func newHandler(
	ctx context.Context,
	cfg *Config,
	repos *repositories,
	pub order.Publisher,
	hs *health.Health,
	m httpmiddleware.TelemetryProvider,
) (http.Handler, error) {
	tokens, err := auth.NewTokens(auth.TokenConfig{
		Secret: []byte(cfg.Auth.Secret),
		TTL:    cfg.Auth.TTL,
		Issuer: cfg.Auth.Issuer,
	})
	if err != nil {
		return nil, errors.Wrap(err, "tokens")
	}

	opts := []order.Option{order.WithMeterProvider(m.MeterProvider())}
	if pub != nil {
		opts = append(opts, order.WithPublisher(pub))
	}
	orderService, err := order.NewService(repos.Orders, repos.Users, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "order service")
	}

	h := handler.NewHandler(
		auth.NewService(repos.Users, tokens),
		repos.Menu,
		cart.NewService(repos.Menu, repos.Carts),
		orderService,
	)

	router := mux.NewRouter()
	router.HandleFunc("/livez", hs.LiveEndpoint).Methods(http.MethodGet)
	router.HandleFunc("/readyz", hs.ReadyEndpoint).Methods(http.MethodGet)
	h.Register(router)

	routeFinder := httpmiddleware.MakeRouteFinder(router)
	return httpmiddleware.Wrap(router,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Location", "Retry-After", httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		h.Authenticate,
		httpmiddleware.Throttle(ctx, httpmiddleware.ThrottleConfig{
			Anon:     httpmiddleware.Rate{Max: cfg.RateLimit.AnonMax, Window: cfg.RateLimit.AnonWindow},
			User:     httpmiddleware.Rate{Max: cfg.RateLimit.UserMax, Window: cfg.RateLimit.UserWindow},
			Identify: h.Identify,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Instrument(serviceName, routeFinder, m),
		httpmiddleware.LogRequests(routeFinder),
		httpmiddleware.Labeler(routeFinder),
	), nil
}
