package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
	"github.com/ehevelone/vitalink-app/internal/usecase"
)

// PrincipalKey is the context key holding the authenticated principal.
const PrincipalKey = "principal"

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireSession resolves the bearer session token and attaches the principal
// to the request context. Both "Authorization: Bearer <token>" and the legacy
// "X-Admin-Token" header are accepted.
func RequireSession(sessions *usecase.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractSessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing session token"))
			return
		}

		principal, err := sessions.Validate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrSessionExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "session expired"))
			case errors.Is(err, usecase.ErrSessionInvalid):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid session token"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		c.Set(PrincipalKey, principal)
		c.Set(UserIDKey, principal.ID)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.UserID = principal.ID
		}

		c.Next()
	}
}

// RequireKind restricts a route to principals of the given account kinds.
func RequireKind(kinds ...domain.AccountKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		for _, kind := range kinds {
			if principal.Kind == kind {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden,
			newErrorResponse(c, "insufficient permissions"))
	}
}

// GetPrincipal retrieves the authenticated principal from the context.
func GetPrincipal(c *gin.Context) (*domain.Principal, bool) {
	raw, exists := c.Get(PrincipalKey)
	if !exists {
		return nil, false
	}

	principal, ok := raw.(*domain.Principal)
	if !ok {
		return nil, false
	}
	return principal, true
}

// GetSessionToken extracts the raw session token from the request, or "".
func GetSessionToken(c *gin.Context) string {
	return extractSessionToken(c)
}

func extractSessionToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	return strings.TrimSpace(c.GetHeader("X-Admin-Token"))
}
