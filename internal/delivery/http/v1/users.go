package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlerImpl) HandleProfile(c *gin.Context) {
	principal, ok := h.mustPrincipal(c)
	if !ok {
		return
	}

	user, err := h.users.Profile(c, principal.ID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

func (h *handlerImpl) HandleListUsersByRole(c *gin.Context) {
	principal, ok := h.mustPrincipal(c)
	if !ok {
		return
	}

	role := c.Query("role")
	if role == "" {
		abort(c, http.StatusBadRequest, "role query parameter is required")
		return
	}

	users, err := h.users.UsersByRole(c, principal, role)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	response := make([]userResponse, len(users))
	for i, user := range users {
		response[i] = newUserResponse(user)
	}
	c.JSON(http.StatusOK, gin.H{"users": response})
}
