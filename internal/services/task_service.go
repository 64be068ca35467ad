package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskboard/taskboard/internal/authz"
	"github.com/taskboard/taskboard/internal/models"
)

const defaultPageSize = 20

type taskServiceImpl struct {
	logger    zerolog.Logger
	store     TaskStore
	directory UserDirectory
}

func NewTaskService(
	logger zerolog.Logger,
	store TaskStore,
	directory UserDirectory,
) TaskService {
	return &taskServiceImpl{
		logger:    logger,
		store:     store,
		directory: directory,
	}
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, p authz.Principal, params CreateTaskParams) (*models.Task, error) {
	if d := authz.CanCreateTask(p); !d.Allowed {
		return nil, newAccessDenied(d)
	}

	if verr := validateCreateTask(params, time.Now()); verr != nil {
		s.logger.Warn().
			Str("user_id", p.ID).
			Err(verr).
			Msg("invalid create task params")
		return nil, verr
	}

	task := &models.Task{
		Title:       params.Title,
		Description: params.Description,
		DueDate:     params.DueDate,
		Priority:    params.Priority,
		Status:      params.Status,
		Tags:        params.Tags,
		CreatedBy:   p.ID,
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}

	created, err := s.store.Create(ctx, task)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", p.ID).
			Msg("failed to create task")
		return nil, err
	}

	s.logger.Info().
		Str("task_id", created.ID).
		Str("user_id", p.ID).
		Msg("created task")
	return created, nil
}

func (s *taskServiceImpl) ListTasks(ctx context.Context, p authz.Principal, params ListTasksParams) (*TaskPage, error) {
	filter := TaskFilter{
		Status:    params.Status,
		Priority:  params.Priority,
		Search:    params.Search,
		SortBy:    params.SortBy,
		SortOrder: params.SortOrder,
		Page:      params.Page,
		PageSize:  params.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = defaultPageSize
	}
	if !authz.ListsAllTasks(p) {
		filter.ViewerID = p.ID
	}

	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", p.ID).
			Msg("failed to list tasks")
		return nil, err
	}

	pages := (total + filter.PageSize - 1) / filter.PageSize
	s.logger.Debug().
		Int("count", len(items)).
		Int("total", total).
		Str("user_id", p.ID).
		Msg("listed tasks")

	return &TaskPage{
		Items:    items,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Pages:    pages,
	}, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, p authz.Principal, taskID string) (*models.Task, error) {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if d := authz.CanReadTask(p, task); !d.Allowed {
		s.logger.Warn().
			Str("task_id", taskID).
			Str("user_id", p.ID).
			Str("reason", d.Reason).
			Msg("read denied")
		return nil, newAccessDenied(d)
	}
	return task, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, p authz.Principal, taskID string, update TaskUpdate) (*models.Task, error) {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if d := authz.CanUpdateTask(p, task); !d.Allowed {
		s.logger.Warn().
			Str("task_id", taskID).
			Str("user_id", p.ID).
			Str("reason", d.Reason).
			Msg("update denied")
		return nil, newAccessDenied(d)
	}

	if verr := validateTaskUpdate(update, time.Now()); verr != nil {
		s.logger.Warn().
			Str("task_id", taskID).
			Err(verr).
			Msg("invalid task update")
		return nil, verr
	}

	updated, err := s.store.Update(ctx, taskID, update)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to update task")
		return nil, err
	}

	s.logger.Info().
		Str("task_id", taskID).
		Str("user_id", p.ID).
		Msg("updated task")
	return updated, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, p authz.Principal, taskID string) error {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	if d := authz.CanDeleteTask(p, task); !d.Allowed {
		s.logger.Warn().
			Str("task_id", taskID).
			Str("user_id", p.ID).
			Str("reason", d.Reason).
			Msg("delete denied")
		return newAccessDenied(d)
	}

	err = s.store.Delete(ctx, taskID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to delete task")
		return err
	}

	s.logger.Info().
		Str("task_id", taskID).
		Str("user_id", p.ID).
		Msg("deleted task")
	return nil
}

func (s *taskServiceImpl) AssignTask(ctx context.Context, p authz.Principal, taskID string, userIDs []string) (*models.Task, error) {
	// Presence validation precedes both existence and ownership checks.
	if len(userIDs) == 0 {
		return nil, &ValidationError{Fields: map[string]string{
			"assignedTo": "at least one user id is required",
		}}
	}

	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if d := authz.CanAssignTask(p, task); !d.Allowed {
		s.logger.Warn().
			Str("task_id", taskID).
			Str("user_id", p.ID).
			Str("reason", d.Reason).
			Msg("assign denied")
		return nil, newAccessDenied(d)
	}

	// All-or-nothing: resolve and vet every target before any mutation.
	for _, userID := range userIDs {
		target, err := s.directory.GetByID(ctx, userID)
		if err != nil {
			s.logger.Warn().
				Str("task_id", taskID).
				Str("target_id", userID).
				Err(err).
				Msg("assign target did not resolve")
			return nil, err
		}
		if d := authz.CanAssignTarget(p, target); !d.Allowed {
			s.logger.Warn().
				Str("task_id", taskID).
				Str("user_id", p.ID).
				Str("target_id", userID).
				Str("reason", d.Reason).
				Msg("assign target denied")
			return nil, newAccessDenied(d)
		}
	}

	updated, err := s.store.AddAssignees(ctx, taskID, userIDs)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to add assignees")
		return nil, err
	}

	s.logger.Info().
		Str("task_id", taskID).
		Str("user_id", p.ID).
		Int("count", len(userIDs)).
		Msg("assigned task")
	return updated, nil
}

func (s *taskServiceImpl) UnassignTask(ctx context.Context, p authz.Principal, taskID string, userIDs []string) (*models.Task, error) {
	if len(userIDs) == 0 {
		return nil, &ValidationError{Fields: map[string]string{
			"assignedTo": "at least one user id is required",
		}}
	}

	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if d := authz.CanUnassignTask(p, task); !d.Allowed {
		s.logger.Warn().
			Str("task_id", taskID).
			Str("user_id", p.ID).
			Str("reason", d.Reason).
			Msg("unassign denied")
		return nil, newAccessDenied(d)
	}

	updated, err := s.store.RemoveAssignees(ctx, taskID, userIDs)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to remove assignees")
		return nil, err
	}

	s.logger.Info().
		Str("task_id", taskID).
		Str("user_id", p.ID).
		Int("count", len(userIDs)).
		Msg("unassigned task")
	return updated, nil
}

func (s *taskServiceImpl) AssignedTasks(ctx context.Context, p authz.Principal, userID string) ([]*models.Task, error) {
	if d := authz.CanViewAssignedTasks(p, userID); !d.Allowed {
		s.logger.Warn().
			Str("user_id", p.ID).
			Str("requested_id", userID).
			Str("reason", d.Reason).
			Msg("assigned list denied")
		return nil, newAccessDenied(d)
	}

	if _, err := s.directory.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	items, _, err := s.store.List(ctx, TaskFilter{
		AssignedTo: userID,
		Page:       1,
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("requested_id", userID).
			Msg("failed to list assigned tasks")
		return nil, err
	}

	s.logger.Debug().
		Int("count", len(items)).
		Str("requested_id", userID).
		Msg("listed assigned tasks")
	return items, nil
}
