package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"datafeed/internal/failover"
	"datafeed/internal/feed"
	"datafeed/internal/logger"
)

// Handlers holds the HTTP handlers bound to one engine.
type Handlers struct {
	engine *failover.Engine
	log    logger.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(engine *failover.Engine, log logger.Logger) *Handlers {
	return &Handlers{engine: engine, log: log}
}

// Health reports process liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// reserved query keys; everything else is forwarded as request params.
var reservedQueryKeys = map[string]bool{
	"type":     true,
	"symbol":   true,
	"realtime": true,
}

// GetData serves GET /api/v1/data?type=market_data&symbol=AAPL.
func (h *Handlers) GetData(c *gin.Context) {
	dt, err := feed.ParseDataType(c.Query("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	realtime, _ := strconv.ParseBool(c.Query("realtime"))

	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if !reservedQueryKeys[key] && len(values) > 0 {
			params[key] = values[0]
		}
	}

	req := &feed.DataRequest{
		Type:            dt,
		Symbol:          symbol,
		Params:          params,
		RequireRealtime: realtime,
	}

	resp, err := h.engine.GetData(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, feed.ErrUnsupportedDataType):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, feed.ErrAllProvidersExhausted):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ProviderStatus serves GET /api/v1/providers/status.
func (h *Handlers) ProviderStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.ProviderStatus())
}

// HealthCheckAll serves POST /api/v1/providers/health-check.
func (h *Handlers) HealthCheckAll(c *gin.Context) {
	results := h.engine.HealthCheckAll(c.Request.Context())
	c.JSON(http.StatusOK, results)
}

// SetProviderEnabled serves PUT /api/v1/providers/:name/enabled.
func (h *Handlers) SetProviderEnabled(c *gin.Context) {
	var body struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled flag is required"})
		return
	}

	name := c.Param("name")
	if err := h.engine.SetProviderEnabled(name, *body.Enabled); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	h.log.Info("provider toggled", "provider", name, "enabled", *body.Enabled)
	c.JSON(http.StatusOK, gin.H{"provider": name, "enabled": *body.Enabled})
}
