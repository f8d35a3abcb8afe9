package app

import (
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/myfinance/backend/internal/config"
	"github.com/myfinance/backend/internal/health"
	"github.com/myfinance/backend/internal/observability"
)

// App bundles everything main needs to run and later tear down in order.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	Mongo         *mongo.Client
	Redis         redis.UniversalClient
	Readiness     *health.ProbeRunner
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	mongoClient *mongo.Client,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
) *App {
	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		Mongo:         mongoClient,
		Redis:         redisClient,
		Readiness:     readiness,
	}
}
