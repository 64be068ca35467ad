package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskboard/taskboard/internal/services"
)

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// respondServiceError translates typed service failures into the response
// envelope. Anything unrecognized becomes an opaque 500.
func (h *handlerImpl) respondServiceError(c *gin.Context, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	}

	var denied *services.AccessDeniedError
	if errors.As(err, &denied) {
		abort(c, http.StatusForbidden, denied.Reason)
		return
	}

	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrUserNotFound):
		abort(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrUserAlreadyExists):
		abort(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrUserPasswordMismatch):
		abort(c, http.StatusUnauthorized, "invalid credentials")
	default:
		h.logger.Error().
			Err(err).
			Msg("unexpected service error")
		abort(c, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}
