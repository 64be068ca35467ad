package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskboard/taskboard/internal/models"
	"github.com/taskboard/taskboard/internal/services"
)

type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Role     string `json:"role"`
}

func newUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Avatar:   user.Avatar,
		Role:     user.Role,
	}
}

type signUpRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Username string `json:"username" binding:"required,alphanum,min=3,max=64"`
	Password string `json:"password" binding:"required,min=6,max=255"`
	Role     string `json:"role" binding:"omitempty,oneof=user manager admin"`
}

func (h *handlerImpl) HandleSignUp(c *gin.Context) {
	var req signUpRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("failed to bind json")
		abort(c, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.auth.SignUp(c, services.SignUpParams{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": newUserResponse(user)})
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=255"`
}

type signInResponse struct {
	User      userResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

func (h *handlerImpl) HandleSignIn(c *gin.Context) {
	var req signInRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("failed to bind json")
		abort(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.auth.SignIn(c, services.SignInParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		// An unknown email reads as bad credentials, not as a probe
		// into which emails exist.
		if errors.Is(err, services.ErrUserNotFound) {
			abort(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, signInResponse{
		User:      newUserResponse(result.User),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}
