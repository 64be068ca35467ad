package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/taskboard/taskboard/internal/services"
)

type Handler interface {
	HandleSignUp(c *gin.Context)
	HandleSignIn(c *gin.Context)
	HandleAuthMiddleware(c *gin.Context)

	HandleProfile(c *gin.Context)
	HandleListUsersByRole(c *gin.Context)

	HandleCreateTask(c *gin.Context)
	HandleListTasks(c *gin.Context)
	HandleGetTask(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleDeleteTask(c *gin.Context)
	HandleAssignTask(c *gin.Context)
	HandleUnassignTask(c *gin.Context)
	HandleMyAssignedTasks(c *gin.Context)
	HandleAssignedTasks(c *gin.Context)
}

type handlerImpl struct {
	logger zerolog.Logger
	auth   services.AuthService
	users  services.UserService
	tasks  services.TaskService
}

func New(
	logger zerolog.Logger,
	authService services.AuthService,
	userService services.UserService,
	taskService services.TaskService,
) Handler {
	return &handlerImpl{
		logger: logger,
		auth:   authService,
		users:  userService,
		tasks:  taskService,
	}
}
