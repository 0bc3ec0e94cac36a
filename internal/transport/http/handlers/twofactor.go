package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fk00750/authguard/internal/transport/http/middleware"
	"github.com/fk00750/authguard/internal/usecase"
)

// TwoFactorHandler exposes the second factor toggle for authenticated users.
type TwoFactorHandler struct {
	twoFactor *usecase.TwoFactorService
}

// NewTwoFactorHandler constructs TwoFactorHandler.
func NewTwoFactorHandler(twoFactor *usecase.TwoFactorService) *TwoFactorHandler {
	return &TwoFactorHandler{twoFactor: twoFactor}
}

// RegisterRoutes binds the two-factor toggle behind the access gate.
func (h *TwoFactorHandler) RegisterRoutes(r *gin.RouterGroup, accessGate gin.HandlerFunc) {
	r.POST("/two-factor", accessGate, h.toggle)
}

// Toggle godoc
// @Summary Toggle two-factor login
// @Description Flips the second factor requirement for the authenticated user.
// @Tags Authentication
// @Produce json
// @Success 200 {object} TwoFactorToggleResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/two-factor [post]
func (h *TwoFactorHandler) toggle(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	enabled, err := h.twoFactor.Toggle(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
			{Err: usecase.ErrNotVerified, Status: http.StatusForbidden, Message: "email address not verified"},
		})
		return
	}

	c.JSON(http.StatusOK, TwoFactorToggleResponse{TwoFactorEnabled: enabled})
}
