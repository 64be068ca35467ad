package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/taskboard/taskboard/internal/config"
	v1 "github.com/taskboard/taskboard/internal/delivery/http/v1"
	"github.com/taskboard/taskboard/internal/services"
	"github.com/taskboard/taskboard/internal/storage/postgres"
)

func MustListenAndServeHTTP() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := cfg.HTTP

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	registerRoutes(router)

	server := &http.Server{
		Addr:    net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler: router,
	}

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	// Wait for the interrupt signal to gracefully
	// shut down the server with a timeout.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}

func registerRoutes(router gin.IRouter) {
	jwtCfg := config.Global().JWT

	userRepository := postgres.NewUserRepository(globalLogger, globalPostgresPool)
	taskRepository := postgres.NewTaskRepository(globalLogger, globalPostgresPool)

	authService := services.NewAuthService(
		globalLogger,
		userRepository,
		jwtCfg.Issuer,
		[]byte(jwtCfg.SigningKey),
		jwtCfg.TokenTTL,
	)
	userService := services.NewUserService(globalLogger, userRepository)
	taskService := services.NewTaskService(globalLogger, taskRepository, userRepository)

	v1Handler := v1.New(globalLogger, authService, userService, taskService)
	router = router.Group("/api/v1")

	userRouter := router.Group("/users")
	userRouter.POST("/signup", v1Handler.HandleSignUp)
	userRouter.POST("/signin", v1Handler.HandleSignIn)
	userRouter.GET("/me", v1Handler.HandleAuthMiddleware, v1Handler.HandleProfile)
	userRouter.GET("", v1Handler.HandleAuthMiddleware, v1Handler.HandleListUsersByRole)

	taskRouter := router.Group("/tasks")
	taskRouter.Use(v1Handler.HandleAuthMiddleware)
	taskRouter.POST("", v1Handler.HandleCreateTask)
	taskRouter.GET("", v1Handler.HandleListTasks)
	taskRouter.GET("/assigned", v1Handler.HandleMyAssignedTasks)
	taskRouter.GET("/assigned/:userId", v1Handler.HandleAssignedTasks)
	taskRouter.GET("/:id", v1Handler.HandleGetTask)
	taskRouter.PATCH("/:id", v1Handler.HandleUpdateTask)
	taskRouter.DELETE("/:id", v1Handler.HandleDeleteTask)
	taskRouter.POST("/:id/assign", v1Handler.HandleAssignTask)
	taskRouter.POST("/:id/unassign", v1Handler.HandleUnassignTask)
}
