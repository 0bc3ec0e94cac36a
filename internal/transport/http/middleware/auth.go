package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fk00750/authguard/internal/core/domain"
	"github.com/fk00750/authguard/internal/infra/security"
)

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			newErrorResponse(c, "missing authorization header"))
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			newErrorResponse(c, "missing bearer token"))
		return "", false
	}

	return token, true
}

func verifyForRoles(verifier *security.TokenVerifier, token string, kind security.TokenKind, roles []domain.Role) (string, domain.Role, error) {
	var lastErr error
	for _, role := range roles {
		subject, err := verifier.Verify(token, role, kind)
		if err == nil {
			return subject, role, nil
		}
		// An expired verdict means the signature matched; keep it over the
		// signature mismatches from the other roles.
		if lastErr == nil || errors.Is(err, security.ErrTokenExpired) {
			lastErr = err
		}
	}
	return "", "", lastErr
}

// RequireAccess validates the Authorization header as an access token signed
// for one of the given roles and stores the principal on the context.
func RequireAccess(verifier *security.TokenVerifier, roles ...domain.Role) gin.HandlerFunc {
	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleUser, domain.RoleAdmin}
	}

	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}

		subject, role, err := verifyForRoles(verifier, token, security.KindAccess, roles)
		if err != nil {
			respondTokenError(c, err, "access")
			return
		}

		c.Set(UserIDKey, subject)
		c.Set(UserRoleKey, role)

		c.Next()
	}
}

// RequireRefresh validates the Authorization header as a refresh token and
// stores the principal plus the raw token on the context; the ledger check
// happens in the usecase layer after this gate passes.
func RequireRefresh(verifier *security.TokenVerifier, roles ...domain.Role) gin.HandlerFunc {
	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleUser, domain.RoleAdmin}
	}

	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}

		subject, role, err := verifyForRoles(verifier, token, security.KindRefresh, roles)
		if err != nil {
			respondTokenError(c, err, "refresh")
			return
		}

		c.Set(UserIDKey, subject)
		c.Set(UserRoleKey, role)
		c.Set(RefreshTokenKey, token)

		c.Next()
	}
}

func respondTokenError(c *gin.Context, err error, kind string) {
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			newErrorResponse(c, kind+" token expired"))
	case errors.Is(err, security.ErrTokenInvalid):
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			newErrorResponse(c, "invalid "+kind+" token"))
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			newErrorResponse(c, "authentication failed"))
	}
}
