package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aleksandersousa/personal-finance-management-api/internal/usecase"
)

// CacheHandler exposes operational cache endpoints for administrators.
type CacheHandler struct {
	forecasts *usecase.ForecastService
}

// NewCacheHandler constructs a CacheHandler.
func NewCacheHandler(forecasts *usecase.ForecastService) *CacheHandler {
	return &CacheHandler{forecasts: forecasts}
}

// Stats handles GET /admin/cache/stats.
func (h *CacheHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.forecasts.CacheStats())
}
