package main

import (
	"TodayInHistory/backend/go/internal/config"
	"TodayInHistory/backend/go/internal/database/kafka"
	"TodayInHistory/backend/go/internal/database/redis"
	"TodayInHistory/backend/go/internal/fact_service/api"
	"TodayInHistory/backend/go/internal/fact_service/publisher"
	"TodayInHistory/backend/go/internal/fact_service/service"
	"TodayInHistory/backend/go/internal/fact_service/store"
	"TodayInHistory/backend/go/internal/llm"
	"TodayInHistory/backend/go/internal/models"
	pkghttp "TodayInHistory/backend/go/pkg/http"
	"TodayInHistory/backend/go/pkg/logger"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	kafkago "github.com/segmentio/kafka-go"
)

func main() {
	configPath := flag.String("config", "backend/go/internal/config/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New(cfg.App.Name, "", "")
	appLogger.Info("Logger initialized")

	if err := run(cfg, appLogger); err != nil {
		appLogger.Fatal(err.Error())
	}
}

func run(cfg *config.AppConfig, appLogger *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// 健康检查失败时报告的外部依赖
	var deps []api.HandlerOption

	// 1. 状态存储
	factStore, err := newStore(ctx, cfg, &deps)
	if err != nil {
		return err
	}
	defer closeQuietly(appLogger, "store", factStore)
	appLogger.WithPayload(map[string]interface{}{"store": cfg.Facts.Store}).Info("Fact store ready")

	// 2. 文本生成客户端
	llmClient, llmCloser, err := llm.NewClient(ctx, cfg.LLM, cfg.Middleware.CircuitBreaker)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer closeQuietly(appLogger, "llm", llmCloser)
	if cfg.LLM.Provider == "huggingface" && cfg.LLM.HuggingFace.APIKey == "" {
		appLogger.Warn("HUGGINGFACE_API_KEY is not set, requests will likely fall back to curated facts")
	}

	// 3. 事件发布
	factPublisher, err := newPublisher(ctx, cfg, appLogger, &deps)
	if err != nil {
		return err
	}
	defer closeQuietly(appLogger, "publisher", factPublisher)

	// 4. Service -> Handler -> Router
	provider := service.NewProvider(llmClient, factStore, service.ProviderConfigFrom(cfg),
		service.WithProviderLogger(logger.New("fact_provider", "", "")))
	factService := service.NewFactService(provider, factStore,
		service.WithLocation(loc),
		service.WithPublisher(factPublisher),
	)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(api.NewHandler(factService, deps...), cfg.Auth.JwtSecret, logger.New("http", "", ""))

	srv, err := pkghttp.NewServer(cfg, router)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("Starting server on " + srv.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	appLogger.Info("Server stopped")
	return nil
}

func newStore(ctx context.Context, cfg *config.AppConfig, deps *[]api.HandlerOption) (store.Store, error) {
	switch cfg.Facts.Store {
	case "redis":
		client, err := redis.NewClient(ctx, &cfg.Databases.Redis)
		if err != nil {
			return nil, err
		}
		*deps = append(*deps, api.WithDependency("redis", func(ctx context.Context) error {
			return redis.HealthCheck(ctx, client)
		}))
		return store.NewRedisStore(client, cfg.Facts.KeyPrefix, config.Duration(cfg.Facts.CacheTTL)), nil
	default:
		return store.NewMemoryStore(cfg.Facts.CacheCapacity, config.Duration(cfg.Facts.CacheTTL), time.Now)
	}
}

type closablePublisher interface {
	service.Publisher
	io.Closer
}

func newPublisher(ctx context.Context, cfg *config.AppConfig, appLogger *logger.Logger, deps *[]api.HandlerOption) (closablePublisher, error) {
	kafkaCfg := &cfg.Databases.Kafka
	if len(kafkaCfg.Brokers) == 0 {
		appLogger.Info("Kafka brokers not configured, fact events disabled")
		return publisher.Nop{}, nil
	}

	if err := kafka.EnsureTopics(ctx, kafkaCfg, kafkaCfg.FactTopic); err != nil {
		return nil, err
	}
	pubLogger := logger.New("fact_publisher", "", "")
	writer, err := kafka.NewWriter(kafkaCfg, kafkaCfg.FactTopic, func(messages []kafkago.Message, err error) {
		if err != nil {
			pubLogger.WithError(models.ErrorInfo{Message: err.Error()}).
				WithPayload(map[string]interface{}{"messages": len(messages)}).
				Error("Failed to deliver fact events")
		}
	})
	if err != nil {
		return nil, err
	}
	*deps = append(*deps, api.WithDependency("kafka", func(ctx context.Context) error {
		_, err := kafka.HealthCheck(ctx, kafkaCfg)
		return err
	}))
	appLogger.WithPayload(map[string]interface{}{"topic": kafkaCfg.FactTopic}).Info("Kafka fact publisher ready")
	return publisher.NewFactPublisher(writer, pubLogger), nil
}

func closeQuietly(appLogger *logger.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("failed to close " + name)
	}
}
