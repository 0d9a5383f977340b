package app

import (
	"context"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/vmandke/vending-machine/configs"
	"github.com/vmandke/vending-machine/internal/adapter/cache"
	vhttp "github.com/vmandke/vending-machine/internal/adapter/http"
	"github.com/vmandke/vending-machine/internal/adapter/http/middleware"
	"github.com/vmandke/vending-machine/internal/adapter/kafka"
	"github.com/vmandke/vending-machine/internal/adapter/queue"
	"github.com/vmandke/vending-machine/internal/directory"
	"github.com/vmandke/vending-machine/internal/logging"
	"github.com/vmandke/vending-machine/internal/usecase"
)

type App struct {
	Router *gin.Engine
}

// InitWithConfig builds one machine instance and everything serving it.
// Redis, RabbitMQ and Kafka are each optional: an unset address disables the
// feature they back, and the machine itself runs fully in memory.
func InitWithConfig(cfg configs.Config, exit func()) (*App, func(), error) {
	logging.Init(cfg.App.Name, cfg.App.LogFile, cfg.App.LogLevel)
	l := logging.New("app")
	l.Info("vending machine starting up")

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// event stream (optional)
	var events usecase.EventPublisher
	if cfg.Rabbit.URL != "" {
		conn, err := amqp.Dial(cfg.Rabbit.URL)
		if err != nil {
			return nil, nil, err
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		producer, err := queue.NewRabbitProducer(ch, cfg.Rabbit.Exchange)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		events = producer
		cleanups = append(cleanups, func() { _ = ch.Close(); _ = conn.Close() })
		l.Info("machine event stream enabled", "exchange", cfg.Rabbit.Exchange)
	}

	// the machine itself
	dir := directory.New(cfg.Machine.BcryptCost)
	machine := usecase.NewMachine(dir, events)

	// redis-backed catalog cache + buy idempotency (optional)
	var catalog usecase.CatalogCache
	var idem usecase.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			cleanup()
			return nil, nil, err
		}
		catalog = cache.NewRedisCatalogCache(rdb, cfg.Cache.TTL)
		idem = cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
		cleanups = append(cleanups, func() { _ = rdb.Close() })
		l.Info("catalog cache and buy idempotency enabled", "redis", cfg.Redis.Addr)
	}

	// remote till-float consumer (optional)
	if len(cfg.Kafka.Brokers) > 0 {
		closeGroup, err := setupTillFloatListener(cfg, machine)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, closeGroup)
		l.Info("till float consumer enabled", "topic", cfg.Kafka.TopicTill)
	}

	// handlers + router + middleware
	h := vhttp.NewMachineHandler(machine, catalog, idem, exit)
	oh := vhttp.NewOperatorHandler(machine)
	th := vhttp.NewTokenHandler(cfg)
	authz := middleware.NewAuthz(cfg)
	router := vhttp.NewRouter(h, oh, th, authz, exit)

	return &App{Router: router}, cleanup, nil
}

func setupTillFloatListener(cfg configs.Config, machine *usecase.Machine) (func(), error) {
	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	if err != nil {
		return nil, err
	}

	h := kafka.NewTillFloatHandler(machine)
	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.TopicTill}, h.Handle)
	consumer.Logger = logging.New("kafka")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			logging.New("kafka").Error("till float consumer stopped", "error", err)
		}
	}()
	return func() {
		cancel()
		_ = grp.Close()
	}, nil
}
