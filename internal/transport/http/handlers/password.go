package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fk00750/authguard/internal/transport/http/middleware"
	"github.com/fk00750/authguard/internal/usecase"
)

// PasswordHandler exposes the password reset and change endpoints.
type PasswordHandler struct {
	password *usecase.PasswordService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(password *usecase.PasswordService) *PasswordHandler {
	return &PasswordHandler{password: password}
}

// RegisterRoutes binds password routes, applying optional middleware ahead of forgot.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup, accessGate gin.HandlerFunc, forgotMiddlewares ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, forgotMiddlewares...)
	chain = append(chain, h.forgot)
	r.POST("/forgot", chain...)

	r.GET("/confirm/:id/:token", h.confirm)
	r.POST("/reset", h.reset)
	r.POST("/change", accessGate, h.change)
}

// Forgot godoc
// @Summary Request a password reset
// @Description Emails a signed reset link to a verified account.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Forgot password payload"
// @Success 202 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/forgot [post]
func (h *PasswordHandler) forgot(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid forgot password payload"))
		return
	}

	if err := h.password.RequestReset(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
			{Err: usecase.ErrNotVerified, Status: http.StatusForbidden, Message: "email address not verified"},
		})
		return
	}

	c.JSON(http.StatusAccepted, MessageResponse{Message: "password reset email sent"})
}

// Confirm godoc
// @Summary Confirm a password reset link
// @Description Consumes a signed reset link and hands out the single-use reset key.
// @Tags Password
// @Produce json
// @Param id path string true "User ID"
// @Param token path string true "Signed reset token"
// @Success 200 {object} ResetKeyResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/confirm/{id}/{token} [get]
func (h *PasswordHandler) confirm(c *gin.Context) {
	userID := c.Param("id")
	token := c.Param("token")

	key, err := h.password.ConfirmResetLink(c.Request.Context(), userID, token)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrLinkExpired, Status: http.StatusUnauthorized, Message: "reset link expired"},
			{Err: usecase.ErrLinkInvalid, Status: http.StatusUnauthorized, Message: "invalid reset link"},
			{Err: usecase.ErrResetKeyInvalid, Status: http.StatusUnauthorized, Message: "invalid reset key"},
		})
		return
	}

	c.JSON(http.StatusOK, ResetKeyResponse{ResetKey: key})
}

// Reset godoc
// @Summary Reset a password with a confirmed key
// @Description Changes the password and revokes every refresh token for the account.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset password payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/reset [post]
func (h *PasswordHandler) reset(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset password payload"))
		return
	}

	if err := h.password.ResetPassword(c.Request.Context(), req.ResetKey, req.Password); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetKeyExpired, Status: http.StatusUnauthorized, Message: "reset key expired"},
			{Err: usecase.ErrResetKeyInvalid, Status: http.StatusUnauthorized, Message: "invalid reset key"},
			{Err: usecase.ErrNotVerified, Status: http.StatusForbidden, Message: "email address not verified"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password reset"})
}

// Change godoc
// @Summary Change the password of the authenticated user
// @Description Verifies the current password, stores the new one and revokes every refresh token.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Change password payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/change [post]
func (h *PasswordHandler) change(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid change password payload"))
		return
	}

	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.password.UpdatePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}
