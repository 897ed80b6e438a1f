package handler

import (
	"context"

	"momentum-radar/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// RSIProvider serves computed RSI reports and raw snapshots.
type RSIProvider interface {
	GetReport(ctx context.Context, timeframe string) (domain.RSIReport, error)
	Snapshot(ctx context.Context, timeframe string) (domain.RSISnapshot, error)
}

// MarketProvider serves price statistics and candle history.
type MarketProvider interface {
	Prices(ctx context.Context) (map[string]domain.PriceSnapshot, error)
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error)
}

type Handler struct {
	tracer trace.Tracer
	rsi    RSIProvider
	market MarketProvider
	tiers  map[string]domain.AlertTier
}

func New(tracer trace.Tracer, rsi RSIProvider, market MarketProvider, tiers []domain.AlertTier) *Handler {
	byTimeframe := make(map[string]domain.AlertTier, len(tiers))
	for _, tier := range tiers {
		byTimeframe[tier.Timeframe] = tier
	}
	return &Handler{
		tracer: tracer,
		rsi:    rsi,
		market: market,
		tiers:  byTimeframe,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)

	api := r.Group("/api", APIKeyAuth(apiKey))
	api.GET("/rsi/:timeframe", h.GetRSIReport)
	api.GET("/rsi/:timeframe/snapshot", h.GetRSISnapshot)
	api.GET("/alerts/:timeframe", h.GetAlerts)
	api.GET("/prices", h.GetPrices)
	api.GET("/candles/:symbol", h.GetCandles)
}
