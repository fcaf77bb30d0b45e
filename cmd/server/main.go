package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-order-service/config"
	"github.com/fekuna/omnipos-order-service/internal/broker"
	"github.com/fekuna/omnipos-order-service/internal/cache"
	"github.com/fekuna/omnipos-order-service/internal/database"
	"github.com/fekuna/omnipos-order-service/internal/event"
	"github.com/fekuna/omnipos-order-service/internal/httpx"
	"github.com/fekuna/omnipos-order-service/internal/logger"
	"github.com/fekuna/omnipos-order-service/internal/telemetry"

	ledgerH "github.com/fekuna/omnipos-order-service/internal/ledger/handler"
	ledgerListenerPkg "github.com/fekuna/omnipos-order-service/internal/ledger/listener"
	ledgerRepoPkg "github.com/fekuna/omnipos-order-service/internal/ledger/repository"
	ledgerUCPkg "github.com/fekuna/omnipos-order-service/internal/ledger/usecase"

	orderH "github.com/fekuna/omnipos-order-service/internal/order/handler"
	orderRepoPkg "github.com/fekuna/omnipos-order-service/internal/order/repository"
	orderUCPkg "github.com/fekuna/omnipos-order-service/internal/order/usecase"

	itemH "github.com/fekuna/omnipos-order-service/internal/orderitem/handler"
	itemRepoPkg "github.com/fekuna/omnipos-order-service/internal/orderitem/repository"
	itemUCPkg "github.com/fekuna/omnipos-order-service/internal/orderitem/usecase"

	promoH "github.com/fekuna/omnipos-order-service/internal/promotion/handler"
	promoRepoPkg "github.com/fekuna/omnipos-order-service/internal/promotion/repository"
	promoUCPkg "github.com/fekuna/omnipos-order-service/internal/promotion/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2.5 Initialize Tracing
	if cfg.Telemetry.Enabled {
		shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint, cfg.Server.AppEnv)
		if err != nil {
			appLogger.Warn("Could not set up tracing, continuing without it", zap.Error(err))
		} else {
			defer func() {
				sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer scancel()
				if err := shutdownTracer(sctx); err != nil {
					appLogger.Warn("Tracer shutdown failed", zap.Error(err))
				}
			}()
			appLogger.Info("Tracing enabled", zap.String("endpoint", cfg.Telemetry.OTLPEndpoint))
		}
	}

	// 3. Connect to Database
	db, err := database.NewPostgres(&database.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			appLogger.Fatal("Could not apply migrations", zap.Error(err))
		}
		appLogger.Info("Database migrations applied")
	}

	// 4. Initialize Redis. The service runs without it: promotions are read
	// from the database and restock events are not deduplicated.
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Redis (promotion cache disabled)", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 5. Initialize Kafka Producer
	var publisher event.Publisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, func(err error, count int) {
			appLogger.Warn("Kafka delivery failed", zap.Int("messages", count), zap.Error(err))
		})
		defer producer.Close()
		publisher = event.NewBrokerPublisher(producer)
		appLogger.Info("Connected to Kafka Producer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	location, err := time.LoadLocation(cfg.Promotion.Timezone)
	if err != nil {
		appLogger.Fatal("Invalid promotion timezone", zap.String("timezone", cfg.Promotion.Timezone), zap.Error(err))
	}

	isolation, err := database.ParseIsolation(cfg.Postgres.TxIsolation)
	if err != nil {
		appLogger.Fatal("Invalid transaction isolation", zap.Error(err))
	}

	// 6. Initialize Repositories
	txm := database.NewTxManager(db, database.WithIsolation(isolation))
	ledgerRepo := ledgerRepoPkg.NewPGRepository(db, cfg.Inventory.AllowNegativeStock)
	itemRepo := itemRepoPkg.NewPGRepository(db)
	orderRepo := orderRepoPkg.NewPGRepository(db)
	promoRepo := promoRepoPkg.NewPGRepository(db)

	// 7. Initialize UseCases
	ledgerUC := ledgerUCPkg.NewLedgerUseCase(txm, ledgerRepo, appLogger)
	promoUC := promoUCPkg.NewPromotionUseCase(txm, promoRepo, redisClient, promoUCPkg.Options{
		Location: location,
		CacheTTL: cfg.Promotion.CacheTTL,
	}, appLogger)
	itemUC := itemUCPkg.NewOrderItemUseCase(txm, itemRepo, ledgerRepo, publisher, itemUCPkg.Options{
		DefaultServingLiters: cfg.Inventory.DefaultServingLiters,
	}, appLogger)
	orderUC := orderUCPkg.NewOrderUseCase(txm, orderRepo, itemRepo, promoUC, publisher, appLogger)

	// 7.5 Initialize Restock Listener
	if cfg.Kafka.Enabled {
		kafkaConsumer := broker.NewConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.RestockTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer kafkaConsumer.Close()

		var dedup ledgerListenerPkg.Deduper
		if redisClient != nil {
			dedup = redisClient
		}
		restockListener := ledgerListenerPkg.NewRestockListener(kafkaConsumer, ledgerUC, dedup, appLogger)
		go restockListener.Start(ctx)
		appLogger.Info("Connected to Kafka Consumer", zap.String("topic", cfg.Kafka.RestockTopic))
	}

	// 8. Initialize Handlers
	router := httpx.NewRouter(appLogger, 30*time.Second,
		orderH.NewOrderHandler(orderUC, appLogger),
		itemH.NewOrderItemHandler(itemUC, appLogger),
		promoH.NewPromotionHandler(promoUC, appLogger),
		ledgerH.NewLedgerHandler(ledgerUC, appLogger),
	)

	// 9. Start HTTP Server
	port := cfg.Server.HTTPPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	srv := &http.Server{
		Addr:              port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	appLogger.Info("Starting HTTP server", zap.String("port", port))

	// Graceful Shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
