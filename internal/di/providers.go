package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/myfinance/backend/internal/app"
	"github.com/myfinance/backend/internal/config"
	"github.com/myfinance/backend/internal/database"
	"github.com/myfinance/backend/internal/health"
	"github.com/myfinance/backend/internal/http/handler"
	"github.com/myfinance/backend/internal/http/middleware"
	"github.com/myfinance/backend/internal/http/router"
	"github.com/myfinance/backend/internal/observability"
	"github.com/myfinance/backend/internal/repository"
	"github.com/myfinance/backend/internal/security"
	"github.com/myfinance/backend/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideMongoClient,
	provideMongoDatabase,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewCodeRepository,
)

var SecuritySet = wire.NewSet(
	provideSessionTokenManager,
	provideCookieManager,
)

var ServiceSet = wire.NewSet(
	service.NewAuthService,
	service.NewUserService,
	provideOTPService,
	provideLedgerServices,
	wire.Bind(new(service.Authenticator), new(*service.AuthService)),
	wire.Bind(new(service.ProfileManager), new(*service.UserService)),
	wire.Bind(new(service.Verifier), new(*service.OTPService)),
)

var HTTPSet = wire.NewSet(
	handler.NewUserHandler,
	provideLedgerHandlers,
	provideGlobalRateLimiter,
	provideAuthRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

// LedgerServices pairs the two ledger kinds so wire can provide both from
// one provider without duplicate *service.LedgerService bindings.
type LedgerServices struct {
	Expenses *service.LedgerService
	Incomes  *service.LedgerService
}

type LedgerHandlers struct {
	Expenses *handler.LedgerHandler
	Incomes  *handler.LedgerHandler
}

type GlobalRateLimiterFunc func(http.Handler) http.Handler
type AuthRateLimiterFunc func(http.Handler) http.Handler

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideMongoClient(cfg *config.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnectTimeout)
	defer cancel()
	return database.Open(ctx, cfg)
}

func provideMongoDatabase(cfg *config.Config, client *mongo.Client) (*mongo.Database, error) {
	db := client.Database(cfg.MongoDatabase)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnectTimeout)
	defer cancel()
	if err := database.EnsureIndexes(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config) redis.UniversalClient {
	if !cfg.RedisEnabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func provideSessionTokenManager(cfg *config.Config) *security.SessionTokenManager {
	return security.NewSessionTokenManager(cfg.SessionIssuer, cfg.SessionAudience, cfg.SessionSecret, cfg.SessionTTL)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite)
}

func provideCooldownStore(cfg *config.Config, redisClient redis.UniversalClient) service.ResendCooldownStore {
	if cfg.RedisEnabled && redisClient != nil {
		return service.NewRedisCooldownStore(redisClient, "otp:cooldown", cfg.OTPResendCooldown)
	}
	return service.NewInMemoryCooldownStore()
}

func provideOTPNotifier(cfg *config.Config, logger *slog.Logger) service.OTPNotifier {
	if cfg.EmailProvider == "postmark" {
		return service.NewPostmarkOTPNotifier(cfg.PostmarkServerToken, cfg.PostmarkAccountToken, cfg.EmailSenderAddress)
	}
	return service.NewDevOTPNotifier(logger)
}

func provideOTPService(
	cfg *config.Config,
	logger *slog.Logger,
	users repository.UserRepository,
	codes repository.CodeRepository,
	redisClient redis.UniversalClient,
) *service.OTPService {
	return service.NewOTPService(
		users,
		codes,
		provideCooldownStore(cfg, redisClient),
		provideOTPNotifier(cfg, logger),
		service.SystemClock(),
		cfg.OTPCodeTTL,
		cfg.OTPResendCooldown,
	)
}

func provideLedgerServices(db *mongo.Database) LedgerServices {
	return LedgerServices{
		Expenses: service.NewExpenseService(repository.NewExpenseRepository(db)),
		Incomes:  service.NewIncomeService(repository.NewIncomeRepository(db)),
	}
}

func provideLedgerHandlers(svcs LedgerServices) LedgerHandlers {
	return LedgerHandlers{
		Expenses: handler.NewExpenseHandler(svcs.Expenses),
		Incomes:  handler.NewIncomeHandler(svcs.Incomes),
	}
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) GlobalRateLimiterFunc {
	if cfg.RedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, "rl:api")
		return middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.APIRateLimitPerMin,
			time.Minute,
			middleware.FailOpen,
			"api",
		).Middleware()
	}
	return middleware.NewRateLimiter(cfg.APIRateLimitPerMin, time.Minute, "api").Middleware()
}

func provideAuthRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) AuthRateLimiterFunc {
	if cfg.RedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, "rl:auth")
		return middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.AuthRateLimitPerMin,
			time.Minute,
			middleware.FailClosed,
			"auth",
		).Middleware()
	}
	return middleware.NewRateLimiter(cfg.AuthRateLimitPerMin, time.Minute, "auth").Middleware()
}

func provideRouterDependencies(
	userHandler *handler.UserHandler,
	ledgerHandlers LedgerHandlers,
	tokens *security.SessionTokenManager,
	users repository.UserRepository,
	globalLimiter GlobalRateLimiterFunc,
	authLimiter AuthRateLimiterFunc,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		UserHandler:      userHandler,
		ExpenseHandler:   ledgerHandlers.Expenses,
		IncomeHandler:    ledgerHandlers.Incomes,
		SessionTokens:    tokens,
		Users:            users,
		CORSOrigins:      cfg.CORSAllowedOrigins,
		AuthRateLimitRPM: cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:  cfg.APIRateLimitPerMin,
		GlobalLimiter:    globalLimiter,
		AuthLimiter:      authLimiter,
		Readiness:        readiness,
		EnableOTelHTTP:   cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, client *mongo.Client, redisClient redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{health.NewMongoChecker(client)}
	if cfg.RedisEnabled {
		checkers = append(checkers, health.NewRedisChecker(redisClient))
	}
	return health.NewProbeRunner(2*time.Second, 0, checkers...)
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	client *mongo.Client,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
) *app.App {
	return app.New(cfg, logger, server, runtime, client, redisClient, readiness)
}
