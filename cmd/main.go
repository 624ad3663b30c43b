package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"sunportal/backend/internal/ai"
	"sunportal/backend/internal/api/handler"
	"sunportal/backend/internal/complaint"
	"sunportal/backend/internal/escalation"
	"sunportal/backend/internal/livefeed"
	"sunportal/backend/internal/notify"
	"sunportal/backend/internal/security"
	"sunportal/backend/internal/storage"
	"sunportal/backend/internal/voting"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupDependencies(logger *zap.Logger) (*gorm.DB, *redis.Client) {
	dsn := getenv("DATABASE_DSN",
		"host=localhost user=user password=password dbname=sunportal port=5432 sslmode=disable")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("failed to connect PostgreSQL", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     getenv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		logger.Fatal("failed to connect Redis", zap.Error(err))
	}

	return db, rdb
}

func buildPublishers(st *storage.Service, logger *zap.Logger) *notify.Multi {
	publishers := []notify.Publisher{st}

	if uri := os.Getenv("AMQP_URI"); uri != "" {
		q, err := notify.NewQueuePublisher(uri)
		if err != nil {
			logger.Warn("notification queue disabled", zap.Error(err))
		} else {
			publishers = append(publishers, q)
		}
	}

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
		if err != nil {
			logger.Warn("Telegram notifications disabled: TELEGRAM_CHAT_ID missing or invalid", zap.Error(err))
		} else if tg, err := notify.NewTelegramNotifier(token, chatID, logger); err != nil {
			logger.Warn("Telegram notifications disabled", zap.Error(err))
		} else {
			publishers = append(publishers, tg)
		}
	}

	return notify.NewMulti(logger, publishers...)
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file loaded")
	}

	db, rdb := setupDependencies(logger)
	st := storage.NewService(db, rdb, logger)
	if err := st.Migrate(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	events := buildPublishers(st, logger)
	codec := security.NewCodec(getenv("SUBMITTER_REF_SECRET", "dev-submitter-ref-secret"))
	jwtSecret := getenv("JWT_SECRET", "dev-jwt-secret")

	var scorer complaint.Scorer
	var recommender *ai.Client
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		client := ai.NewClient(key, os.Getenv("OPENAI_MODEL"), logger)
		scorer = client
		recommender = client
	} else {
		logger.Info("complaint screening disabled: OPENAI_API_KEY not set")
	}

	complaints := complaint.NewService(st, events, scorer, codec, logger)
	votes := voting.NewService(st, logger)
	sweeper := escalation.NewSweeper(st, events, logger)
	hub := livefeed.NewHub(st, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go hub.Run(ctx)
	go sweeper.Run(ctx)

	r := gin.Default()
	h := handler.NewHandler(complaints, votes, st, hub, recommender, []byte(jwtSecret), logger)
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:           getenv("LISTEN_ADDR", ":8080"),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("sunportal backend listening", zap.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}
