package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aleksandersousa/personal-finance-management-api/internal/usecase"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
	log  *zap.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{auth: auth, log: log}
}

// Login authenticates a user and issues an access token. Throttled requests
// receive 429 with a Retry-After header.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email and password are required"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		var tooMany *usecase.TooManyAttemptsError
		if errors.As(err, &tooMany) {
			retryAfter := int64(tooMany.RetryAfter/time.Second) + 1
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))

			resp := NewErrorResponse(c, "too many login attempts")
			resp.RetryAfterMS = tooMany.RetryAfter.Milliseconds()
			c.JSON(http.StatusTooManyRequests, resp)
			return
		}

		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid email or password"},
			{Err: usecase.ErrInactiveAccount, Status: http.StatusForbidden, Message: "account is not active"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   result.ExpiresAt,
		User: UserSummary{
			ID:        result.User.ID,
			Name:      result.User.Name,
			Email:     result.User.Email,
			Status:    result.User.Status,
			LastLogin: result.User.LastLogin,
		},
	})
}
