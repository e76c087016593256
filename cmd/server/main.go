package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/supermart/gateway"
	"github.com/example/supermart/pkg/checkout"
	"github.com/example/supermart/pkg/config"
	"github.com/example/supermart/pkg/events"
	"github.com/example/supermart/pkg/models"
	"github.com/example/supermart/pkg/payment/nets"
	"github.com/example/supermart/pkg/payment/paypal"
	"github.com/example/supermart/pkg/repository"
)

func main() {
	// Load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := newLogger(&cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting storefront",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	// Connect to MySQL
	db, err := openDatabase(&cfg.MySQL)
	if err != nil {
		logger.Fatal("Failed to connect to MySQL", zap.Error(err))
	}

	ctx := context.Background()

	// Redis (cart cache, pending payments, checkout locks)
	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()
	if err := redisRepo.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully")
	}

	// MongoDB audit trail, best effort
	var audit checkout.AuditLogger
	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		logger.Warn("MongoDB connection failed, audit trail disabled", zap.Error(err))
	} else {
		defer mongoRepo.Close(ctx)
		audit = mongoRepo
	}

	// RabbitMQ order events, best effort
	var publisher checkout.EventPublisher
	amqpPublisher, err := events.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
	if err != nil {
		logger.Warn("RabbitMQ connection failed, order events disabled", zap.Error(err))
	} else {
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	// Payment providers
	paypalClient := paypal.NewClient(&cfg.PayPal)
	netsClient := nets.NewClient(&cfg.Nets)
	poller := nets.NewPoller(netsClient, cfg.Nets.PollInterval, cfg.Nets.MaxPolls, logger)

	// Stores
	products := repository.NewProductRepository(db)
	carts := repository.NewCartRepository(db)
	orders := repository.NewOrderRepository(db)
	transactions := repository.NewTransactionRepository(db)
	users := repository.NewUserRepository(db)

	service := checkout.NewService(checkout.Params{
		Products:     products,
		Carts:        carts,
		Orders:       orders,
		Transactions: transactions,
		Users:        users,
		Session:      redisRepo,
		Card:         paypalClient,
		QR:           netsClient,
		Publisher:    publisher,
		Audit:        audit,
		Logger:       logger,
		LockTTL:      cfg.Checkout.LockTTL,
		Currency:     cfg.PayPal.Currency,
	})

	gw := gateway.NewGateway(cfg, logger, gateway.Deps{
		Service:      service,
		Products:     products,
		Carts:        carts,
		Orders:       orders,
		Transactions: transactions,
		Users:        users,
		Cache:        redisRepo,
		Audit:        mongoRepo,
		Poller:       poller,
	})
	gw.SetupRoutes()

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Service stopped")
}

func openDatabase(cfg *config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderDetail{},
		&models.Transaction{},
	); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func newLogger(cfg *config.LogConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Encoding != "" {
		zapCfg.Encoding = cfg.Encoding
	}
	if len(cfg.OutputPaths) > 0 {
		zapCfg.OutputPaths = cfg.OutputPaths
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}
