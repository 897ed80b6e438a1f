package handler

import (
	"net/http"
	"strings"

	"momentum-radar/internal/alert"
	"momentum-radar/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetAlerts godoc
// @Summary      Evaluate the price-change alert tier for a timeframe
// @Description  Applies the tier threshold to the latest prices, ignoring the hourly gate
// @Tags         alerts
// @Produce      json
// @Param        timeframe  path  string  true  "Alert timeframe (1h, 24h, 7d, 30d)"
// @Success      200  {object}  domain.AlertDecision
// @Failure      400  {object}  map[string]string
// @Router       /api/alerts/{timeframe} [get]
func (h *Handler) GetAlerts(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-alerts")
	defer span.End()

	timeframe := strings.ToLower(c.Param("timeframe"))
	span.SetAttributes(attribute.String("timeframe", timeframe))

	tier, ok := h.tiers[timeframe]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                "unsupported timeframe: " + timeframe,
			"supported_timeframes": domain.AlertTimeframes,
		})
		return
	}

	prices, err := h.market.Prices(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, alert.Evaluate(prices, tier))
}

// GetPrices godoc
// @Summary      Get the latest price statistics for every tracked pair
// @Tags         alerts
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/prices [get]
func (h *Handler) GetPrices(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-prices")
	defer span.End()

	prices, err := h.market.Prices(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"prices": prices})
}
