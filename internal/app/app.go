package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mongoadapter "github.com/Will-hxw/1688/internal/adapter/mongo"
	natsadapter "github.com/Will-hxw/1688/internal/adapter/nats"
	redisadapter "github.com/Will-hxw/1688/internal/adapter/redis"
	"github.com/Will-hxw/1688/internal/app/config"
	"github.com/Will-hxw/1688/internal/platform/logger"
	"github.com/Will-hxw/1688/internal/platform/metrics"
	httpport "github.com/Will-hxw/1688/internal/port/http"
	"github.com/Will-hxw/1688/internal/service"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type App struct {
	cfg         *config.Config
	log         logger.Logger
	server      *httpport.Server
	mongoClient *mongo.Client
	redisClient *redis.Client
	natsConn    *nats.Conn
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	appLogger, err := logger.NewZapLogger(logger.Config{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Infof("configuration loaded: env=%s http_port=%s", cfg.Env, cfg.HTTPServer.Port)

	mongoClient, err := mongoadapter.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
	}
	appLogger.Info("MongoDB client initialized")

	redisClient, err := redisadapter.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}
	appLogger.Info("Redis client initialized")

	natsConn, err := natsadapter.NewConnection(cfg.NATS)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize NATS connection: %w", err)
	}
	publisher, err := natsadapter.NewPublisher(natsConn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize NATS publisher: %w", err)
	}
	appLogger.Info("NATS publisher initialized")

	orderRepo, err := mongoadapter.NewOrderRepository(ctx, mongoClient, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize order repository: %w", err)
	}
	listingRepo, err := mongoadapter.NewListingRepository(ctx, mongoClient, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize listing repository: %w", err)
	}
	reviewRepo, err := mongoadapter.NewReviewRepository(ctx, mongoClient, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize review repository: %w", err)
	}
	userRepo, err := mongoadapter.NewUserRepository(ctx, mongoClient, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize user repository: %w", err)
	}
	idemRepo, err := mongoadapter.NewIdempotencyRepository(ctx, mongoClient, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize idempotency repository: %w", err)
	}
	txnRunner := mongoadapter.NewTxnRunner(mongoClient)
	idemCache := redisadapter.NewIdempotencyCache(redisClient, cfg.Idempotency.CacheTTL)

	metricsManager := metrics.NewManager(cfg.Metrics.Namespace)

	purchaseSvc := service.NewPurchaseService(
		orderRepo, listingRepo, userRepo, idemRepo, txnRunner,
		idemCache, publisher, metricsManager, appLogger,
		cfg.Idempotency.Lease, cfg.Idempotency.Retention,
	)
	orderSvc := service.NewOrderService(orderRepo, listingRepo, userRepo, txnRunner, publisher, metricsManager, appLogger)
	reviewSvc := service.NewReviewService(reviewRepo, orderRepo, userRepo, txnRunner, publisher, metricsManager, appLogger)
	listingSvc := service.NewListingService(listingRepo, userRepo, publisher, appLogger)
	userSvc := service.NewUserService(userRepo, appLogger)

	router := httpport.NewRouter(httpport.RouterDeps{
		Orders:    httpport.NewOrderHandler(purchaseSvc, orderSvc, appLogger, metricsManager),
		Listings:  httpport.NewListingHandler(listingSvc, appLogger, metricsManager),
		Reviews:   httpport.NewReviewHandler(reviewSvc, appLogger, metricsManager),
		Users:     httpport.NewUserHandler(userSvc, appLogger, metricsManager),
		JWTSecret: cfg.JWT.Secret,
		Log:       appLogger,
		Metrics:   metricsManager,
	})

	server := httpport.NewServer(cfg.HTTPServer, router, appLogger)

	return &App{
		cfg:         cfg,
		log:         appLogger,
		server:      server,
		mongoClient: mongoClient,
		redisClient: redisClient,
		natsConn:    natsConn,
	}, nil
}

func (a *App) Run() {
	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Fatalf("failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit
	a.log.Infof("received shutdown signal: %v", receivedSignal)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPServer.TimeoutGraceful+5*time.Second)
	defer cancel()

	if err := a.server.Stop(shutdownCtx); err != nil {
		a.log.Errorf("error during HTTP server shutdown: %v", err)
	}

	if a.natsConn != nil {
		a.natsConn.Close()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Errorf("error closing Redis client: %v", err)
		}
	}
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(shutdownCtx); err != nil {
			a.log.Errorf("error disconnecting from MongoDB: %v", err)
		}
	}

	a.log.Info("application stopped")
}
