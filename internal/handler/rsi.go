package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"momentum-radar/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetRSIReport godoc
// @Summary      Get the categorized RSI report for a timeframe
// @Description  Serves the latest report, recomputing when the persisted snapshot is stale
// @Tags         rsi
// @Produce      json
// @Param        timeframe  path  string  true  "Candle timeframe (5m, 15m, 1h, 4h, 1d, 1w)"
// @Success      200  {object}  domain.RSIReport
// @Failure      400  {object}  map[string]string
// @Failure      504  {object}  map[string]string
// @Router       /api/rsi/{timeframe} [get]
func (h *Handler) GetRSIReport(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-rsi-report")
	defer span.End()

	timeframe, ok := h.timeframeParam(c, span.SetAttributes)
	if !ok {
		return
	}

	report, err := h.rsi.GetReport(ctx, timeframe)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "computation exceeded the cycle deadline, try again later"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetRSISnapshot godoc
// @Summary      Get the raw persisted RSI snapshot for a timeframe
// @Description  Returns the last persisted notable values without triggering a recompute
// @Tags         rsi
// @Produce      json
// @Param        timeframe  path  string  true  "Candle timeframe (5m, 15m, 1h, 4h, 1d, 1w)"
// @Success      200  {object}  domain.RSISnapshot
// @Failure      400  {object}  map[string]string
// @Router       /api/rsi/{timeframe}/snapshot [get]
func (h *Handler) GetRSISnapshot(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-rsi-snapshot")
	defer span.End()

	timeframe, ok := h.timeframeParam(c, span.SetAttributes)
	if !ok {
		return
	}

	snap, err := h.rsi.Snapshot(ctx, timeframe)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (h *Handler) timeframeParam(c *gin.Context, setAttrs func(...attribute.KeyValue)) (string, bool) {
	timeframe := strings.ToLower(c.Param("timeframe"))
	setAttrs(attribute.String("timeframe", timeframe))

	for _, tf := range domain.SupportedTimeframes {
		if tf == timeframe {
			return timeframe, true
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"error":                "unsupported timeframe: " + timeframe,
		"supported_timeframes": domain.SupportedTimeframes,
	})
	return "", false
}
