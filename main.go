package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/qalite/config"
	"github.com/cppla/qalite/controllers"
	"github.com/cppla/qalite/events"
	"github.com/cppla/qalite/routes"
	"github.com/cppla/qalite/store"
	"github.com/cppla/qalite/utils"
)

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		panic(err)
	}

	// Initialize logger early
	logger, err := utils.InitLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	ctx := context.Background()

	var rdb *redis.Client
	if cfg.Store.Driver == "redis" || cfg.Cache.Enabled {
		if rdb, err = utils.NewRedis(ctx, cfg.Redis); err != nil {
			sugar.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
	}

	st, err := openStore(cfg, rdb)
	if err != nil {
		sugar.Fatalf("open store: %v", err)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.RabbitMQ.URL != "" {
		mq, err := events.DialRabbitMQ(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			sugar.Fatalf("rabbitmq: %v", err)
		}
		defer mq.Close()
		publisher = mq
	}

	var cache *utils.Cache
	if cfg.Cache.Enabled {
		cache = utils.NewCache(rdb, time.Duration(cfg.Cache.TTLSeconds)*time.Second, logger)
	}

	opts := []controllers.Option{
		controllers.WithLogger(logger),
		controllers.WithEvents(publisher),
		controllers.WithCache(cache),
	}
	r := routes.SetupRouter(cfg, routes.Services{
		Questions: controllers.NewQuestionController(st, opts...),
		Answers:   controllers.NewAnswerController(st, opts...),
		Users:     controllers.NewUserController(st, opts...),
		Browse:    controllers.NewBrowseController(st, opts...),
	}, logger)

	sugar.Infow("starting server", "port", cfg.App.Port, "store", cfg.Store.Driver, "cache", cfg.Cache.Enabled)
	if err := utils.GraceServer(ctx, ":"+cfg.App.Port, r, logger); err != nil {
		sugar.Fatalf("server stopped with error: %v", err)
	}
}

// openStore builds the storage backend selected by cfg.Store.Driver.
func openStore(cfg config.AppConfig, rdb *redis.Client) (*store.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.NewMemory(), nil
	case "redis":
		return store.NewRedis(rdb, cfg.Redis.KeyPrefix), nil
	case "mysql", "postgres", "sqlite":
		db, err := config.InitDatabase(cfg, store.Models()...)
		if err != nil {
			return nil, err
		}
		return store.NewGorm(db), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

