package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aq2208/settlement-api/configs"
	"github.com/aq2208/settlement-api/internal/adapter/cache"
	apihttp "github.com/aq2208/settlement-api/internal/adapter/http"
	"github.com/aq2208/settlement-api/internal/adapter/http/middleware"
	"github.com/aq2208/settlement-api/internal/adapter/kafka"
	"github.com/aq2208/settlement-api/internal/adapter/payout"
	"github.com/aq2208/settlement-api/internal/adapter/queue"
	"github.com/aq2208/settlement-api/internal/adapter/repo"
	"github.com/aq2208/settlement-api/internal/logging"
	"github.com/aq2208/settlement-api/internal/security"
	"github.com/aq2208/settlement-api/internal/usecase"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type App struct {
	Router *gin.Engine
}

func InitWithConfig(cfg configs.Config) (*App, func(), error) {
	// init logger
	logger := logging.Init(cfg.App.Name, "./logs/app.log")
	logger.Info("settlement-api: starting up")

	// init database
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := db.PingContext(ctx); err != nil {
		cancel()
		return nil, nil, err
	}
	cancel()

	if err := repo.RunMigrations(db, cfg.MySQL.MigrationsDir); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	// init redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, nil, err
	}

	// init rabbitmq
	conn, err := amqp091.Dial(cfg.Rabbit.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, err
	}
	producer, err := queue.NewRabbitProducer(ch)
	if err != nil {
		return nil, nil, err
	}

	// webhook signature verifier
	verifier, err := security.NewVerifier(cfg)
	if err != nil {
		return nil, nil, err
	}

	// platform commission rate applied when a seller has no override
	defaultRate, err := decimal.NewFromString(cfg.Commission.DefaultRate)
	if err != nil {
		return nil, nil, fmt.Errorf("commission.default_rate: %w", err)
	}

	// payment processor REST client
	processor := payout.New(cfg)

	// infra
	ledgerRepo := repo.NewMySQLLedgerRepo(db)
	settlementRepo := repo.NewMySQLSettlementRepo(db)
	cartRepo := repo.NewMySQLCartRepo(db)
	sellerRepo := repo.NewMySQLSellerRepo(db)
	outboxRepo := repo.NewMySQLOutboxRepo(db)
	outcomes := cache.NewRedisOutcomeCache(rdb, cfg.Cache.TTL)

	// use cases
	settleUC := usecase.NewSettlePayment(
		settlementRepo, ledgerRepo, sellerRepo, processor, outcomes,
		defaultRate, cfg.Payout.Timeout,
	)
	checkoutUC := usecase.NewCreateCheckout(cartRepo, processor)

	// register queue-handler
	setupQueue(ch, settlementRepo, settleUC)

	// register kafka-listener
	kafkaCtx, stopKafka := context.WithCancel(context.Background())
	setupKafkaListener(kafkaCtx, cfg, settlementRepo)

	// outbox poller drains promoted orders to the broker
	pollerCtx, stopPoller := context.WithCancel(context.Background())
	poller := queue.NewOutboxPoller(outboxRepo, producer, logging.New("outbox"), cfg.Outbox.Tick, cfg.Outbox.BatchSize)
	go poller.Run(pollerCtx)

	// init handlers + routers + middleware
	h := apihttp.Handlers{
		Webhook:    apihttp.NewWebhookHandler(verifier, settleUC, cfg),
		Checkout:   apihttp.NewCheckoutHandler(checkoutUC, cfg),
		Cart:       apihttp.NewCartHandler(cartRepo),
		Order:      apihttp.NewOrderHandler(ledgerRepo),
		Settlement: apihttp.NewSettlementHandler(settlementRepo, producer),
		Token:      apihttp.NewTokenHandler(cfg),
	}
	auth := middleware.NewAuthz(cfg)
	router := apihttp.NewRouter(h, auth)

	cleanup := func() {
		stopPoller()
		stopKafka()
		_ = ch.Close()
		_ = conn.Close()
		_ = rdb.Close()
		_ = db.Close()
	}

	return &App{Router: router}, cleanup, nil
}

func setupQueue(ch *amqp091.Channel, registry usecase.SettlementRegistry, settle *usecase.SettlePayment) {
	h := queue.NewSettlementRetryHandler(registry, settle)

	router := queue.NewRouter(ch, logging.New("queue"), queue.WithPrefetch(50))
	router.Register(queue.RetryQueueName, queue.JSONHandler[usecase.RetryMsg]{HandleFunc: h.HandleRetry})

	if err := router.Start(); err != nil {
		panic(err)
	}
}

func setupKafkaListener(ctx context.Context, cfg configs.Config, registry usecase.SettlementRegistry) {
	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	if err != nil {
		panic(err)
	}

	h := kafka.NewTransferStatusHandler(registry)
	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.TransferTopic}, h.Handle, logging.New("kafka"))

	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			panic(err)
		}
	}()
}
