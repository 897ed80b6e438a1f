package main

import (
	"context"
	"log"
	"net/http"
	"os"
	osignal "os/signal"
	"syscall"
	"time"

	"momentum-radar/internal/alert"
	"momentum-radar/internal/batch"
	"momentum-radar/internal/bot"
	"momentum-radar/internal/cache"
	"momentum-radar/internal/config"
	"momentum-radar/internal/db"
	"momentum-radar/internal/exchange"
	"momentum-radar/internal/handler"
	"momentum-radar/internal/job"
	"momentum-radar/internal/repository"
	"momentum-radar/internal/service"
	"momentum-radar/internal/signal"
	"momentum-radar/internal/store"
	"momentum-radar/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "momentum-radar/docs"
)

var (
	loadEnvFunc          = godotenv.Load
	loadConfigFunc       = config.Load
	initPostgresFunc     = db.InitPostgres
	migrateUpFunc        = db.MigrateUp
	initRedisFunc        = cache.InitRedis
	initTracerFunc       = tracing.InitTracer
	newCandleRepoFunc    = repository.NewCandleRepository
	startTelegramBotFunc = bot.StartTelegramBot
	startJobFunc         = func(ctx context.Context, start func(context.Context)) { go start(ctx) }
	newRouterFunc        = gin.Default
	setupSignalNotify    = osignal.Notify
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc  = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServer   = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Momentum Radar API
// @version         1.0
// @description     RSI signal engine with price-change alerts over Binance spot markets.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := initPostgresFunc(ctx, cfg.DatabaseURL)
	redisClient := initRedisFunc(ctx, cfg.RedisURL)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	var candleRepo service.CandleRepository
	if pool != nil {
		if _, err := migrateUpFunc(ctx, pool); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		candleRepo = newCandleRepoFunc(pool, tracer)
	}

	gateway := exchange.NewGateway(tracer, cfg.ExchangeBaseURL)
	runner := batch.NewRunner(tracer, func() batch.CandleSource {
		// Each worker owns its own gateway so rate-limiter state is
		// never shared across goroutines.
		return cache.NewOHLCVCache(exchange.NewGateway(tracer, cfg.ExchangeBaseURL))
	})

	snapshotStore := store.NewSnapshotStore(tracer, redisClient)
	classifier := signal.NewClassifier(cfg.RSICategories, cfg.NotableLow, cfg.NotableHigh)

	rsiService := service.NewRSIService(
		tracer, gateway, runner, classifier, snapshotStore,
		cfg.QuoteAsset, cfg.RSIPeriod, cfg.RSICandleLimit,
		time.Duration(cfg.RSICycleTimeoutSecs)*time.Second,
	)
	marketService := service.NewMarketService(
		tracer, gateway, cache.NewOHLCVCache(gateway), candleRepo, redisClient,
	)
	evaluator := alert.NewEvaluator(tracer, cfg.AlertTiers, snapshotStore)

	tg := startTelegramBotFunc(cfg.TelegramBotToken, cfg.TelegramChatIDs, rsiService, marketService, cfg.AlertTiers)

	startJobFunc(ctx, job.NewRSIJob(tracer, rsiService, tg, cfg.RSITimeframes, cfg.RSIPollSecs).Start)
	startJobFunc(ctx, job.NewAlertJob(tracer, marketService, evaluator, tg, cfg.AlertPollSecs).Start)
	if candleRepo != nil {
		startJobFunc(ctx, job.NewArchiveJob(tracer, marketService, rsiService, cfg.RSITimeframes, cfg.RSICandleLimit).Start)
	}

	h := handler.New(tracer, rsiService, marketService, cfg.AlertTiers)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("momentum-radar"))

	h.RegisterRoutes(r, cfg.APIKey)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServer(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
