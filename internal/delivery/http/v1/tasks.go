package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskboard/taskboard/internal/models"
	"github.com/taskboard/taskboard/internal/services"
)

type taskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	AssignedTo  []string  `json:"assignedTo"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newTaskResponse(task *models.Task) taskResponse {
	assignedTo := task.AssignedTo
	if assignedTo == nil {
		assignedTo = []string{}
	}
	return taskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		Priority:    task.Priority,
		Status:      task.Status,
		Tags:        task.Tags,
		CreatedBy:   task.CreatedBy,
		AssignedTo:  assignedTo,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func newTaskListResponse(tasks []*models.Task) []taskResponse {
	response := make([]taskResponse, len(tasks))
	for i, task := range tasks {
		response[i] = newTaskResponse(task)
	}
	return response
}

type createTaskRequest struct {
	Title       string    `json:"title" binding:"required,max=200"`
	Description string    `json:"description" binding:"required"`
	DueDate     time.Time `json:"dueDate" binding:"required"`
	Priority    string    `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Status      string    `json:"status" binding:"omitempty,oneof=pending in-progress completed cancelled"`
	Tags        []string  `json:"tags"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	principal, ok := h.mustPrincipal(c)
	if !ok {
		return
	}

	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("failed to bind json")
		abort(c, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.tasks.CreateTask(c, principal, services.CreateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		Status:      req.Status,
		Tags:        req.Tags,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"task": newTaskResponse(task)})
}

func (h *handlerImpl) HandleListTasks(c *gin.Context) {
	principal, ok := h.mustPrincipal(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.tasks.ListTasks(c, principal, services.ListTasksParams{
		Status:    c.Query("status"),
		Priority:  c.Query("priority"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Page:      page,
		PageSize:  limit,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": newTaskListResponse(result.Items),
		"total": result.Total,
		"page":  result.Page,
		"pages": result.Pages,
	})
}

func (h *handlerImpl) HandleGetTask(c *gin.Context) {
	principal, ok := h.mustPrincipal(c)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c, principal, c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": newTaskResponse(task)})
}

type updateTaskRequest struct {
	Title       *string    `json:"title,omitempty" binding:"omitempty,max=200"`
	Description *string    `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Priority    *string    `json:"priority,omitempty" binding:"omitempty,oneof=low medium high urgent"`
	Status      *string    `json:"status,omitempty" binding:"omitempty,oneof=pending in-progress completed cancelled"`
	Tags        []string   `json:"tags,omitempty"`
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	principal, ok := h.mustPrincipal(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("failed to bind json")
		abort(c, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.tasks.UpdateTask(c, principal, c.Param("id"), services.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		Status:      req.Status,
		Tags:        req.Tags,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": newTaskResponse(task)})
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	principal, ok := h.mustPrincipal(c)
	if !ok {
		return
	}

	err := h.tasks.DeleteTask(c, principal, c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type assignTaskRequest struct {
	AssignedTo []string `json:"assignedTo" binding:"required,min=1,dive,required"`
}

func (h *handlerImpl) HandleAssignTask(c *gin.Context) {
	principal, ok := h.mustPrincipal(c)
	if !ok {
		return
	}

	var req assignTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("failed to bind json")
		abort(c, http.StatusBadRequest, "assignedTo is required")
		return
	}

	task, err := h.tasks.AssignTask(c, principal, c.Param("id"), req.AssignedTo)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": newTaskResponse(task)})
}

func (h *handlerImpl) HandleUnassignTask(c *gin.Context) {
	principal, ok := h.mustPrincipal(c)
	if !ok {
		return
	}

	var req assignTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("failed to bind json")
		abort(c, http.StatusBadRequest, "assignedTo is required")
		return
	}

	task, err := h.tasks.UnassignTask(c, principal, c.Param("id"), req.AssignedTo)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": newTaskResponse(task)})
}

func (h *handlerImpl) HandleMyAssignedTasks(c *gin.Context) {
	principal, ok := h.mustPrincipal(c)
	if !ok {
		return
	}

	tasks, err := h.tasks.AssignedTasks(c, principal, principal.ID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": newTaskListResponse(tasks)})
}

func (h *handlerImpl) HandleAssignedTasks(c *gin.Context) {
	principal, ok := h.mustPrincipal(c)
	if !ok {
		return
	}

	tasks, err := h.tasks.AssignedTasks(c, principal, c.Param("userId"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": newTaskListResponse(tasks)})
}
