package main

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/dauTT/astroport-dca/api"
	"github.com/dauTT/astroport-dca/config"
	"github.com/dauTT/astroport-dca/dca"
	"github.com/dauTT/astroport-dca/pkg/router"
	"github.com/dauTT/astroport-dca/pkg/tokens"
	"github.com/dauTT/astroport-dca/service"
	"github.com/dauTT/astroport-dca/storage"
	"github.com/dauTT/astroport-dca/storage/postgres"
)

func main() {
	cfg, err := config.GetConfigure()
	if err != nil {
		panic(err)
	}

	logger := logrus.StandardLogger()

	sdClient, err := statsd.New(cfg.Datadog.Host + ":" + cfg.Datadog.Port)
	if err != nil {
		panic(err)
	}

	db, err := postgres.NewPostgresBackend(cfg.Database.DSN)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redis, err := storage.NewRedisStorage(storage.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		User:     cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redis.Close()

	routerClient := router.NewClient(cfg.Router.Server)
	tokenClient := tokens.NewClient(cfg.Tokens.Server)

	engine, err := dca.NewEngine(db, routerClient, tokenClient, logger, cfg.Engine)
	if err != nil {
		logger.Fatalf("Failed to initialize engine: %v", err)
	}

	redisOptions := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	queueClient := asynq.NewClient(redisOptions)
	defer queueClient.Close()

	keeper, err := service.NewKeeperService(db, redis, queueClient, cfg.Keeper.Schedule)
	if err != nil {
		logger.Fatalf("Failed to initialize keeper: %v", err)
	}
	if err := keeper.Start(); err != nil {
		logger.Fatalf("Failed to start keeper: %v", err)
	}
	defer keeper.Stop()
	logger.Info("Keeper service started")

	server := api.NewServer(cfg, engine, redis, sdClient, logger)
	if err := server.StartServer(); err != nil {
		logger.Fatalf("Server stopped: %v", err)
	}
}
