package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fk00750/authguard/internal/core/domain"
	"github.com/fk00750/authguard/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserSummary describes a minimal view of a user returned by the API.
type UserSummary struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
	Verified bool        `json:"verified"`
}

func newUserSummary(user *domain.User) UserSummary {
	return UserSummary{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Verified: user.Verified,
	}
}

// RegisterRequest defines the payload for the register endpoint.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	User    UserSummary `json:"user"`
	Message string      `json:"message"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenPairResponse carries a freshly issued credential pair.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse is returned by login; either a pair or a two-factor notice.
type LoginResponse struct {
	AccessToken       string `json:"access_token,omitempty"`
	RefreshToken      string `json:"refresh_token,omitempty"`
	TwoFactorRequired bool   `json:"two_factor_required,omitempty"`
	Message           string `json:"message,omitempty"`
}

// OTPVerifyRequest defines the payload for the OTP verification endpoint.
type OTPVerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

// TwoFactorToggleResponse reports the new second factor state.
type TwoFactorToggleResponse struct {
	TwoFactorEnabled bool `json:"two_factor_enabled"`
}

// ForgotPasswordRequest defines the payload for the forgot password endpoint.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetKeyResponse returns the key handed out once a reset link is confirmed.
type ResetKeyResponse struct {
	ResetKey string `json:"reset_key"`
}

// ResetPasswordRequest defines the payload for the password reset endpoint.
type ResetPasswordRequest struct {
	ResetKey string `json:"reset_key" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// ChangePasswordRequest defines the payload for the authenticated password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}
