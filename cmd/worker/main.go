package main

import (
	"fmt"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/dauTT/astroport-dca/config"
	"github.com/dauTT/astroport-dca/dca"
	"github.com/dauTT/astroport-dca/internal/tasks"
	"github.com/dauTT/astroport-dca/pkg/router"
	"github.com/dauTT/astroport-dca/pkg/tokens"
	"github.com/dauTT/astroport-dca/service"
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

	routerClient := router.NewClient(cfg.Router.Server)
	tokenClient := tokens.NewClient(cfg.Tokens.Server)

	engine, err := dca.NewEngine(db, routerClient, tokenClient, logger, cfg.Engine)
	if err != nil {
		logger.Fatalf("Failed to initialize engine: %v", err)
	}

	worker, err := service.NewWorker(engine, routerClient, sdClient, cfg.Keeper.Executor)
	if err != nil {
		logger.Fatalf("Failed to initialize worker: %v", err)
	}

	redisOptions := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(
		redisOptions,
		asynq.Config{
			Logger:      logger,
			Concurrency: 10,
			Queues: map[string]int{
				tasks.QUEUE_NAME: 10,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeDcaPurchase, worker.HandlePurchase)
	if err := srv.Run(mux); err != nil {
		panic(fmt.Errorf("could not run server: %w", err))
	}
}
