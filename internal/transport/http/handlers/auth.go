package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fk00750/authguard/internal/transport/http/middleware"
	"github.com/fk00750/authguard/internal/usecase"
)

// AuthHandler exposes login, token rotation and logout endpoints.
type AuthHandler struct {
	auth      *usecase.AuthService
	twoFactor *usecase.TwoFactorService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, twoFactor *usecase.TwoFactorService) *AuthHandler {
	return &AuthHandler{auth: auth, twoFactor: twoFactor}
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of login.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, refreshGate gin.HandlerFunc, loginMiddlewares ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
	chain = append(chain, h.login)
	r.POST("/login", chain...)

	r.POST("/otp/verify", h.verifyOTP)
	r.POST("/refresh", refreshGate, h.refresh)
	r.POST("/logout", refreshGate, h.logout)
}

// Login godoc
// @Summary Authenticate with email and password
// @Description Verifies credentials and either returns a token pair or starts a one-time code challenge.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request payload"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid email or password"},
			{Err: usecase.ErrNotVerified, Status: http.StatusForbidden, Message: "email address not verified"},
			{Err: usecase.ErrOTPPending, Status: http.StatusConflict, Message: "a one-time code is already pending"},
		})
		return
	}

	if result.TwoFactorPending {
		c.JSON(http.StatusOK, LoginResponse{
			TwoFactorRequired: true,
			Message:           "one-time code sent",
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	})
}

// VerifyOTP godoc
// @Summary Complete a two-factor login
// @Description Exchanges a pending one-time code for a token pair.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body OTPVerifyRequest true "One-time code payload"
// @Success 200 {object} TokenPairResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/otp/verify [post]
func (h *AuthHandler) verifyOTP(c *gin.Context) {
	var req OTPVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid one-time code payload"))
		return
	}

	pair, err := h.twoFactor.VerifyCode(c.Request.Context(), req.Code)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrOTPInvalid, Status: http.StatusUnauthorized, Message: "invalid one-time code"},
			{Err: usecase.ErrOTPExpired, Status: http.StatusUnauthorized, Message: "one-time code expired"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		})
		return
	}

	c.JSON(http.StatusOK, TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh godoc
// @Summary Rotate a refresh token
// @Description Issues a new token pair and retires the presented refresh token.
// @Tags Authentication
// @Produce json
// @Success 200 {object} TokenPairResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) refresh(c *gin.Context) {
	token := middleware.GetRefreshToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "refresh token required"))
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidRefreshToken, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
			{Err: usecase.ErrExpiredRefreshToken, Status: http.StatusUnauthorized, Message: "refresh token expired"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		})
		return
	}

	c.JSON(http.StatusOK, TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout godoc
// @Summary Logout the current session
// @Description Removes the presented refresh token from the active ledger.
// @Tags Authentication
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) logout(c *gin.Context) {
	token := middleware.GetRefreshToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "refresh token required"))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidRefreshToken, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
		})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}
