package handler

import (
	"net/http"
	"strconv"
	"strings"

	"momentum-radar/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetCandles godoc
// @Summary      Get OHLCV candles for a pair
// @Description  Serves archived candles, falling back to a live fetch when the archive is empty
// @Tags         candles
// @Produce      json
// @Param        symbol     path   string  true   "Pair symbol (e.g., BTCUSDT)"
// @Param        timeframe  query  string  false  "Candle timeframe (5m, 15m, 1h, 4h, 1d, 1w)"  default(1h)
// @Param        limit      query  int     false  "Number of candles (default 100, max 500)"  default(100)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/candles/{symbol} [get]
func (h *Handler) GetCandles(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-candles")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	timeframe := strings.ToLower(c.DefaultQuery("timeframe", "1h"))
	supported := false
	for _, tf := range domain.SupportedTimeframes {
		if tf == timeframe {
			supported = true
			break
		}
	}
	if !supported {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                "unsupported timeframe: " + timeframe,
			"supported_timeframes": domain.SupportedTimeframes,
		})
		return
	}

	limit := 100
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	candles, err := h.market.GetCandles(ctx, symbol, timeframe, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"timeframe": timeframe,
		"candles":   candles,
	})
}
