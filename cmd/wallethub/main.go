package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	// _ "github.com/mattn/go-sqlite3" // requires gcc
	_ "modernc.org/sqlite"

	config "github.com/blocodev/wallethub/internal/config"
	sagaApp "github.com/blocodev/wallethub/internal/saga/application"
	sagaDomain "github.com/blocodev/wallethub/internal/saga/domain"
	sagaPostgres "github.com/blocodev/wallethub/internal/saga/infra/db/postgres"
	sagaSQLite "github.com/blocodev/wallethub/internal/saga/infra/db/sqlite"
	sagaEvents "github.com/blocodev/wallethub/internal/saga/infra/inbound/events"
	sagaHttp "github.com/blocodev/wallethub/internal/saga/infra/inbound/http"
	sharedDomain "github.com/blocodev/wallethub/internal/shared/domain"
	chAnalytics "github.com/blocodev/wallethub/internal/shared/infra/analytics/clickhouse"
	sharedBus "github.com/blocodev/wallethub/internal/shared/infra/bus"
	outboxPostgres "github.com/blocodev/wallethub/internal/shared/infra/db/postgres"
	outboxSQLite "github.com/blocodev/wallethub/internal/shared/infra/db/sqlite"
	infraEvents "github.com/blocodev/wallethub/internal/shared/infra/events"
	"github.com/blocodev/wallethub/internal/shared/infra/relayer"
	walletApp "github.com/blocodev/wallethub/internal/wallet/application"
	walletDomain "github.com/blocodev/wallethub/internal/wallet/domain"
	walletHttp "github.com/blocodev/wallethub/internal/wallet/infra/inbound/http"
	walletCache "github.com/blocodev/wallethub/internal/wallet/infra/outbound/cache"
	walletPostgres "github.com/blocodev/wallethub/internal/wallet/infra/outbound/db/postgres"
	walletSQLite "github.com/blocodev/wallethub/internal/wallet/infra/outbound/db/sqlite"
	"github.com/blocodev/wallethub/pkg/logger"
)

// ---------------- Main ----------------
func main() {
	logger.Init()          // inicializa zap
	log := logger.Logger() // obtiene logger estructurado
	defer log.Sync()       // flush buffers al salir

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	// ---------------- DB ----------------
	var (
		outboxRepo interface {
			sharedDomain.OutboxRepository
			sharedDomain.OutboxAppender
		}
		sagaRepo   sagaDomain.SagaRepository
		walletRepo walletDomain.WalletRepository
	)

	if cfg.PostgresDSN != "" {
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to open Postgres", zap.Error(err))
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal("failed to ping Postgres", zap.Error(err))
		}

		for _, init := range []func(*sql.DB) error{
			outboxPostgres.InitSchema, sagaPostgres.InitSchema, walletPostgres.InitSchema,
		} {
			if err := init(db); err != nil {
				log.Fatal("failed to initialize Postgres schema", zap.Error(err))
			}
		}

		pgOutbox := outboxPostgres.NewOutboxRepoPostgres(db)
		outboxRepo = pgOutbox
		sagaRepo = sagaPostgres.NewSagaRepoPostgres(db)
		walletRepo = walletPostgres.NewWalletRepoPostgres(db, pgOutbox)
	} else {
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			log.Fatal("failed to open SQLite", zap.Error(err))
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal("failed to ping SQLite", zap.Error(err))
		}

		for _, init := range []func(*sql.DB) error{
			outboxSQLite.InitSchema, sagaSQLite.InitSchema, walletSQLite.InitSchema,
		} {
			if err := init(db); err != nil {
				log.Fatal("failed to initialize SQLite schema", zap.Error(err))
			}
		}

		sqOutbox := outboxSQLite.NewOutboxRepoSQLite(db)
		outboxRepo = sqOutbox
		sagaRepo = sagaSQLite.NewSagaRepoSQLite(db)
		walletRepo = walletSQLite.NewWalletRepoSQLite(db, sqOutbox)
	}

	// ---------------- Cache ----------------
	var cacheInstance walletDomain.WalletCache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, cache en memoria:", zap.Error(err))
		cacheInstance = walletCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
	} else {
		cacheInstance = walletCache.NewRedisCache(rdb, cfg.CacheTTL)
		log.Info("✅ Redis conectado, cache habilitado")
	}

	// --------------- Servicios --------------
	sagaService := sagaApp.NewService(sagaRepo, log)
	walletService := walletApp.NewWalletService(walletRepo, cacheInstance, sagaService, log)

	// ---------------- Events ---------------
	var eventPublisher sharedBus.EventPublisher
	sagaConsumer := sagaEvents.NewSagaConsumer(sagaService, log)

	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos")

		// El writer es genérico: el topic va en cada mensaje.
		writer := &kafka.Writer{
			Addr:     kafka.TCP(cfg.KafkaBrokers...),
			Balancer: &kafka.Hash{},
		}
		defer writer.Close()

		eventPublisher = infraEvents.NewKafkaPublisher(writer, log)

		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.KafkaBrokers,
			Topic:    walletDomain.WalletTopic,
			GroupID:  "wallethub-saga",
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		})
		defer reader.Close()

		consumerAdapter := infraEvents.NewConsumerAdapter(reader, sagaConsumer, log)
		consumerAdapter.Start(ctx)
	} else {
		log.Info("⚡️Usando bus de eventos en memoria (canales de Go)")

		inMemoryBus := infraEvents.NewInMemoryBus()
		eventPublisher = inMemoryBus

		log.Info("🎧 Iniciando listener en memoria para eventos de wallet")
		sagaEvents.BackgroundConsumerChan(ctx, inMemoryBus.Subscribe(walletDomain.WalletTopic, 10), sagaConsumer, log)
	}

	// ------------ Outbox Dispatcher ------------
	// Se podría ejecutar externamente
	dispatcher := relayer.NewDispatcher(
		outboxRepo,
		eventPublisher,
		walletDomain.TopicRegistry(),
		cfg.OutboxPeriod,
		cfg.OutboxLimit,
		cfg.PublishTimeout,
		log,
	)

	if cfg.ClickHouseAddr != "" {
		recorder, err := chAnalytics.NewDispatchLogRepo(cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, sin analytics de despacho", zap.Error(err))
		} else {
			dispatcher.WithRecorder(recorder)
			log.Info("✅ ClickHouse conectado, analytics de despacho habilitado")
		}
	}

	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// ---------------- HTTP ----------------
	walletHandler := walletHttp.NewWalletHandler(walletService)
	sagaHandler := sagaHttp.NewSagaHandler(sagaService)
	router := gin.Default()
	walletHttp.RegisterWalletRoutes(router, walletHandler)
	sagaHttp.RegisterSagaRoutes(router, sagaHandler)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	log.Info("🚀 Server running",
		zap.String("url", "http://localhost:"+cfg.HTTPPort),
	)
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
