package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/teetimex/tee-time-exchange/internal/adapters/crdb"
	mongoadapter "github.com/teetimex/tee-time-exchange/internal/adapters/mongo"
	"github.com/teetimex/tee-time-exchange/internal/adapters/rabbit"
	redisadapter "github.com/teetimex/tee-time-exchange/internal/adapters/redis"
	"github.com/teetimex/tee-time-exchange/internal/auth"
	"github.com/teetimex/tee-time-exchange/internal/config"
	"github.com/teetimex/tee-time-exchange/internal/exchange"
	httphandler "github.com/teetimex/tee-time-exchange/internal/http"
	"github.com/teetimex/tee-time-exchange/internal/idempotency"
	"github.com/teetimex/tee-time-exchange/internal/ledger"
	"github.com/teetimex/tee-time-exchange/internal/observability"
	"github.com/teetimex/tee-time-exchange/internal/rateLimit"
	"github.com/teetimex/tee-time-exchange/internal/readmodel"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database("tte")
	registry := mongoadapter.NewCourseRegistry(mongoDB, logger)
	audit := mongoadapter.NewAuditLogger(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, time.Hour)
	rl := rateLimit.NewRateLimiter(redisCache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	if _, err := rabbit.NewPublisher(rabbitConn); err != nil {
		log.Fatalf("failed to declare exchange: %v", err)
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	ldg := ledger.New(repo, registry, redisCache, audit, logger)
	exch := exchange.New(repo, redisCache, audit, logger, cfg.AcceptMarksTraded)
	dashboard := readmodel.NewDashboard(repo, redisCache)

	handlers := httphandler.NewHandlers(cfg, repo, ldg, exch, dashboard, registry, tokens, idemp, logger)

	r := httphandler.SetupRouter(handlers, logger, rl, tokens)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
