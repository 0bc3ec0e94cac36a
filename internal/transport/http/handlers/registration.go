package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fk00750/authguard/internal/usecase"
)

// RegistrationHandler exposes account creation and email verification endpoints.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// RegisterRoutes binds registration routes, applying optional middleware ahead of register.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup, registerMiddlewares ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, registerMiddlewares...)
	chain = append(chain, h.register)
	r.POST("/register", chain...)

	r.GET("/verify-email/:id/:token", h.verifyEmail)
}

// Register godoc
// @Summary Register a new user account
// @Description Creates an unverified user and emails a signed verification link.
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request payload"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *RegistrationHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	user, err := h.registration.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email or username already registered"},
		})
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		User:    newUserSummary(user),
		Message: "verification email sent",
	})
}

// VerifyEmail godoc
// @Summary Verify an email address
// @Description Consumes a signed verification link and marks the account verified.
// @Tags Registration
// @Produce json
// @Param id path string true "User ID"
// @Param token path string true "Signed verification token"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/verify-email/{id}/{token} [get]
func (h *RegistrationHandler) verifyEmail(c *gin.Context) {
	userID := c.Param("id")
	token := c.Param("token")

	if err := h.registration.VerifyEmail(c.Request.Context(), userID, token); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrLinkExpired, Status: http.StatusUnauthorized, Message: "verification link expired"},
			{Err: usecase.ErrLinkInvalid, Status: http.StatusUnauthorized, Message: "invalid verification link"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "email verified"})
}
