package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
	"github.com/aleksandersousa/personal-finance-management-api/internal/core/port"
	"github.com/aleksandersousa/personal-finance-management-api/internal/transport/http/middleware"
	"github.com/aleksandersousa/personal-finance-management-api/internal/usecase"
)

// EntryHandler exposes CRUD endpoints for financial entries and categories.
type EntryHandler struct {
	entries *usecase.EntryService
	log     *zap.Logger
}

// NewEntryHandler constructs an EntryHandler.
func NewEntryHandler(entries *usecase.EntryService, log *zap.Logger) *EntryHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EntryHandler{entries: entries, log: log}
}

var entryErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidEntry, Status: http.StatusBadRequest, Message: "invalid entry payload"},
	{Err: usecase.ErrCategoryNotFound, Status: http.StatusNotFound, Message: "category not found"},
	{Err: usecase.ErrEntryNotFound, Status: http.StatusNotFound, Message: "entry not found"},
}

// Create handles POST /entries.
func (h *EntryHandler) Create(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)

	var req EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid entry payload"))
		return
	}

	entry, err := h.entries.Create(c.Request.Context(), userID, entryInputFromRequest(req))
	if err != nil {
		RespondWithMappedError(c, err, entryErrorCases, http.StatusInternalServerError, "create entry failed")
		return
	}

	c.JSON(http.StatusCreated, newEntryResponse(*entry))
}

// Update handles PUT /entries/:id.
func (h *EntryHandler) Update(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)
	entryID := c.Param("id")

	var req EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid entry payload"))
		return
	}

	entry, err := h.entries.Update(c.Request.Context(), userID, entryID, entryInputFromRequest(req))
	if err != nil {
		RespondWithMappedError(c, err, entryErrorCases, http.StatusInternalServerError, "update entry failed")
		return
	}

	c.JSON(http.StatusOK, newEntryResponse(*entry))
}

// Delete handles DELETE /entries/:id.
func (h *EntryHandler) Delete(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)
	entryID := c.Param("id")

	if err := h.entries.Delete(c.Request.Context(), userID, entryID); err != nil {
		RespondWithMappedError(c, err, entryErrorCases, http.StatusInternalServerError, "delete entry failed")
		return
	}

	c.Status(http.StatusNoContent)
}

// Get handles GET /entries/:id.
func (h *EntryHandler) Get(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)
	entryID := c.Param("id")

	entry, err := h.entries.Get(c.Request.Context(), userID, entryID)
	if err != nil {
		RespondWithMappedError(c, err, entryErrorCases, http.StatusInternalServerError, "get entry failed")
		return
	}

	c.JSON(http.StatusOK, newEntryResponse(*entry))
}

// List handles GET /entries with optional filters.
func (h *EntryHandler) List(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)

	filter := port.EntryFilter{
		CategoryID: c.Query("category_id"),
		Kind:       domain.EntryKind(c.Query("kind")),
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid 'from' timestamp"))
			return
		}
		filter.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid 'to' timestamp"))
			return
		}
		filter.To = t
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid 'limit'"))
			return
		}
		filter.Limit = n
	}
	if offset := c.Query("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid 'offset'"))
			return
		}
		filter.Offset = n
	}

	entries, err := h.entries.List(c.Request.Context(), userID, filter)
	if err != nil {
		RespondWithMappedError(c, err, entryErrorCases, http.StatusInternalServerError, "list entries failed")
		return
	}

	out := make([]EntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, newEntryResponse(entry))
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}

// CreateCategory handles POST /categories.
func (h *EntryHandler) CreateCategory(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid category payload"))
		return
	}

	category, err := h.entries.CreateCategory(c.Request.Context(), userID, req.Name, domain.EntryKind(req.Kind))
	if err != nil {
		RespondWithMappedError(c, err, entryErrorCases, http.StatusInternalServerError, "create category failed")
		return
	}

	c.JSON(http.StatusCreated, CategoryResponse{
		ID:        category.ID,
		Name:      category.Name,
		Kind:      string(category.Kind),
		CreatedAt: category.CreatedAt,
	})
}

// ListCategories handles GET /categories.
func (h *EntryHandler) ListCategories(c *gin.Context) {
	userID := middleware.AuthenticatedUserID(c)

	categories, err := h.entries.ListCategories(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, entryErrorCases, http.StatusInternalServerError, "list categories failed")
		return
	}

	out := make([]CategoryResponse, 0, len(categories))
	for _, category := range categories {
		out = append(out, CategoryResponse{
			ID:        category.ID,
			Name:      category.Name,
			Kind:      string(category.Kind),
			CreatedAt: category.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

func entryInputFromRequest(req EntryRequest) usecase.EntryInput {
	return usecase.EntryInput{
		CategoryID:  req.CategoryID,
		Kind:        domain.EntryKind(req.Kind),
		AmountCents: req.AmountCents,
		Description: req.Description,
		OccurredAt:  req.OccurredAt,
	}
}
