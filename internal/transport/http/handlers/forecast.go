package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
	"github.com/aleksandersousa/personal-finance-management-api/internal/transport/http/middleware"
	"github.com/aleksandersousa/personal-finance-management-api/internal/usecase"
)

// ForecastHandler exposes the forecast endpoint.
type ForecastHandler struct {
	forecasts *usecase.ForecastService
	log       *zap.Logger
}

// NewForecastHandler constructs a ForecastHandler.
func NewForecastHandler(forecasts *usecase.ForecastService, log *zap.Logger) *ForecastHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ForecastHandler{forecasts: forecasts, log: log}
}

// Get handles GET /forecast. Query parameters: horizon_months (default 6),
// category_ids (comma separated), include_income and include_expense
// (default true).
func (h *ForecastHandler) Get(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)

	params := domain.ForecastParams{
		UserID:         userID,
		HorizonMonths:  6,
		IncludeIncome:  true,
		IncludeExpense: true,
	}

	if horizon := c.Query("horizon_months"); horizon != "" {
		n, err := strconv.Atoi(horizon)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid 'horizon_months'"))
			return
		}
		params.HorizonMonths = n
	}
	if ids := c.Query("category_ids"); ids != "" {
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				params.CategoryIDs = append(params.CategoryIDs, id)
			}
		}
	}
	if include := c.Query("include_income"); include != "" {
		v, err := strconv.ParseBool(include)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid 'include_income'"))
			return
		}
		params.IncludeIncome = v
	}
	if include := c.Query("include_expense"); include != "" {
		v, err := strconv.ParseBool(include)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid 'include_expense'"))
			return
		}
		params.IncludeExpense = v
	}

	forecast, err := h.forecasts.Forecast(c.Request.Context(), params)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidForecastParams, Status: http.StatusBadRequest, Message: "invalid forecast parameters"},
		}, http.StatusInternalServerError, "forecast failed")
		return
	}

	lines := make([]ForecastLineResponse, 0, len(forecast.Lines))
	for _, line := range forecast.Lines {
		lines = append(lines, ForecastLineResponse{
			CategoryID:          line.CategoryID,
			CategoryName:        line.CategoryName,
			MonthlyAverageCents: line.MonthlyAverageCents,
			ProjectedTotalCents: line.ProjectedTotalCents,
		})
	}

	c.JSON(http.StatusOK, ForecastResponse{
		HorizonMonths:     forecast.HorizonMonths,
		GeneratedAt:       forecast.GeneratedAt,
		NetPerMonthCents:  forecast.NetPerMonthCents,
		ProjectedNetCents: forecast.ProjectedNetCents,
		Lines:             lines,
	})
}
