package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskboard/taskboard/internal/authz"
)

const principalCtxKey = "principal"

// HandleAuthMiddleware verifies the Bearer token and attaches the typed
// principal to the request context. Handlers below never read auth state from
// anywhere else.
func (h *handlerImpl) HandleAuthMiddleware(c *gin.Context) {
	const authHeader = "Authorization"
	header := c.GetHeader(authHeader)
	if header == "" {
		h.logger.Warn().Msg("authorization header required")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	const bearerPrefix = "Bearer"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != bearerPrefix {
		h.logger.Warn().Msg("invalid authorization header")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	principal, err := h.auth.ParseToken(parts[1])
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("failed to parse token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	c.Set(principalCtxKey, principal)
	c.Next()
}

func principalFromContext(c *gin.Context) (authz.Principal, bool) {
	value, exists := c.Get(principalCtxKey)
	if !exists {
		return authz.Principal{}, false
	}
	principal, ok := value.(authz.Principal)
	return principal, ok
}

// mustPrincipal aborts with 401 when the middleware did not run.
func (h *handlerImpl) mustPrincipal(c *gin.Context) (authz.Principal, bool) {
	principal, ok := principalFromContext(c)
	if !ok {
		h.logger.Error().Msg("no principal found in context")
		c.AbortWithStatus(http.StatusUnauthorized)
	}
	return principal, ok
}
