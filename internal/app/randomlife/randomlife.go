// Package randomlife собирает и запускает HTTP API RandomLife для одного региона.
package randomlife

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/randomlife/internal/ai"
	"github.com/magabrotheeeer/randomlife/internal/app"
	"github.com/magabrotheeeer/randomlife/internal/auth"
	"github.com/magabrotheeeer/randomlife/internal/cache"
	"github.com/magabrotheeeer/randomlife/internal/config"
	grpcserver "github.com/magabrotheeeer/randomlife/internal/grpc/server"
	"github.com/magabrotheeeer/randomlife/internal/http/middlewarectx"
	"github.com/magabrotheeeer/randomlife/internal/lib/jwt"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/metrics"
	"github.com/magabrotheeeer/randomlife/internal/paymentprovider"
	"github.com/magabrotheeeer/randomlife/internal/region"
	"github.com/magabrotheeeer/randomlife/internal/services/admin"
	authservice "github.com/magabrotheeeer/randomlife/internal/services/auth"
	"github.com/magabrotheeeer/randomlife/internal/services/payment"
	"github.com/magabrotheeeer/randomlife/internal/services/preference"
	"github.com/magabrotheeeer/randomlife/internal/services/recommendation"
	"github.com/magabrotheeeer/randomlife/internal/services/subscription"
)

const (
	shutdownTimeout     = 15 * time.Second
	limiterIdle         = 10 * time.Minute
	healthCheckInterval = 15 * time.Second
)

// App процесс API.
type App struct {
	server   *http.Server
	health   *grpcserver.HealthServer
	grpcAddr string
	logger   *slog.Logger
	stores   *app.Stores
	cache    *cache.Cache
	broker   *app.Broker
	prefs    *preference.Service
}

// New открывает хранилища и клиенты, нужные API, и собирает роутер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	r, err := region.Parse(cfg.Region)
	if err != nil {
		return nil, err
	}

	stores, err := app.OpenStores(ctx, cfg, true, logger)
	if err != nil {
		return nil, err
	}
	db := stores.Active

	cacheRedis, err := cache.InitServer(ctx, cfg.Redis)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}

	var (
		broker        *app.Broker
		prefPublisher preference.Publisher
		payPublisher  payment.Publisher
	)
	if cfg.RabbitMQ.URL != "" {
		broker, err = app.ConnectBroker(cfg.RabbitMQ.URL)
		if err != nil {
			_ = stores.Close()
			_ = cacheRedis.Close()
			return nil, err
		}
		prefPublisher = broker.Publisher
		payPublisher = broker.Publisher
	} else {
		logger.Warn("rabbitmq is not configured, learning preferences in process and skipping receipts")
	}

	providers, err := newProviders(ctx, cfg, r)
	if err != nil {
		closeAll(stores, cacheRedis, broker, logger)
		return nil, err
	}
	logger.Info("payment providers configured", slog.Any("providers", providers.Names()))

	m := metrics.New(prometheus.DefaultRegisterer)

	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	var verifier auth.Verifier = auth.NewAppTokenVerifier(tokens)
	var wechatOAuth authservice.WeChatExchanger
	if r == region.INTL {
		verifier = auth.NewSupabaseVerifier(cfg.SupabaseJWTSecret)
	} else if cfg.WeChat.AppID != "" {
		wechatOAuth = auth.NewWeChatOAuth(cfg.WeChat.AppID, cfg.WeChat.AppSecret, cfg.WeChat.BaseURL, cfg.TimeoutHTTP)
	}

	var generator recommendation.Generator
	if cfg.AI.APIKey != "" {
		generator = ai.New(cfg.AI)
	} else {
		logger.Warn("ai api key is not set, serving the fallback pool only")
	}

	prefs := preference.New(db, prefPublisher, logger)
	subs := subscription.New(db, cacheRedis, cfg.StatusCacheTTL, logger)

	sources := make([]admin.Source, 0, len(stores.All)+len(stores.Unavailable))
	for _, a := range stores.All {
		sources = append(sources, a)
	}
	for name, err := range stores.Unavailable {
		sources = append(sources, admin.Unavailable(name, err))
	}

	deps := Deps{
		Region:   r,
		DB:       db,
		Feedback: db,
		Verifier: verifier,
		Admins:   cfg.Admin,
		Limiter:  middlewarectx.NewIPLimiter(cfg.RequestsPerSecond, cfg.Burst, limiterIdle),
		Auth:     authservice.New(db, tokens, wechatOAuth, prefs, r, logger),
		Recommendations: recommendation.New(recommendation.Deps{
			Repo:         db,
			Generator:    generator,
			Preferences:  prefs,
			Entitlements: subs,
			Counter:      cacheRedis,
			Metrics:      m,
		}, cfg.FreeDailyQuota, logger),
		Subscriptions: subs,
		Payments: payment.New(payment.Deps{
			Repo:          db,
			Providers:     providers,
			Subscriptions: subs,
			Publisher:     payPublisher,
			Metrics:       m,
		}, r, cfg.PublicURL, logger),
		Admin: admin.New(sources, cacheRedis, cfg.AdminStatsTTL, m, logger),
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, deps)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		health:   grpcserver.NewHealthServer(db, healthCheckInterval, logger),
		grpcAddr: cfg.AddressGRPC,
		logger:   logger,
		stores:   stores,
		cache:    cacheRedis,
		broker:   broker,
		prefs:    prefs,
	}, nil
}

// newProviders регистрирует платежных провайдеров региона r, для которых заданы ключи.
func newProviders(ctx context.Context, cfg *config.Config, r region.Region) (*paymentprovider.Registry, error) {
	const op = "randomlife.newProviders"

	var list []paymentprovider.Provider
	switch r {
	case region.INTL:
		if cfg.Stripe.SecretKey != "" {
			list = append(list, paymentprovider.NewStripe(cfg.Stripe))
		}
		if cfg.PayPal.ClientID != "" {
			list = append(list, paymentprovider.NewPayPal(cfg.PayPal, cfg.TimeoutHTTP))
		}
	case region.CN:
		if cfg.WeChatPay.MchID != "" {
			p, err := paymentprovider.NewWeChat(ctx, cfg.WeChatPay)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			list = append(list, p)
		}
		if cfg.Alipay.AppID != "" {
			p, err := paymentprovider.NewAlipay(cfg.Alipay, cfg.TimeoutHTTP)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			list = append(list, p)
		}
	}
	return paymentprovider.NewRegistry(list...), nil
}

func closeAll(stores *app.Stores, c *cache.Cache, broker *app.Broker, logger *slog.Logger) {
	if broker != nil {
		broker.Close(logger)
	}
	if err := c.Close(); err != nil {
		logger.Error("failed to close redis", sl.Err(err))
	}
	if err := stores.Close(); err != nil {
		logger.Error("failed to close storage", sl.Err(err))
	}
}

// Run обслуживает HTTP и gRPC health до завершения ctx, потом корректно останавливается.
func (a *App) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.grpcAddr)
	if err != nil {
		closeAll(a.stores, a.cache, a.broker, a.logger)
		return fmt.Errorf("listen grpc: %w", err)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go a.health.Watch(watchCtx)

	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("gRPC health server starting on", slog.String("address", a.grpcAddr))
		if err := a.health.Serve(lis); err != nil {
			errCh <- err
		}
	}()
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down HTTP server gracefully")
	if err := a.server.Shutdown(timeoutCtx); err != nil && runErr == nil {
		runErr = err
	}
	a.health.Stop()
	a.prefs.Wait()
	closeAll(a.stores, a.cache, a.broker, a.logger)
	return runErr
}
