package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/taskboard/taskboard/internal/models"
	"github.com/taskboard/taskboard/internal/services"
)

// TaskRepository implements services.TaskStore on top of a tasks table and a
// task_assignees join table. The join table is what makes the assignee set
// semantics exact: ON CONFLICT DO NOTHING for idempotent adds, plain DELETE
// for no-op removes.
type TaskRepository struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewTaskRepository(logger zerolog.Logger, pgPool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{
		logger: logger,
		pgPool: pgPool,
	}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	taskUUID, err := uuid.NewV7()
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to generate task uuid")
		return nil, err
	}

	now := time.Now()
	created := &models.Task{
		ID:          taskUUID.String(),
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		Priority:    task.Priority,
		Status:      task.Status,
		Tags:        task.Tags,
		CreatedBy:   task.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if created.Tags == nil {
		// The tags column is NOT NULL; pgx encodes a nil slice as SQL
		// NULL rather than an empty array.
		created.Tags = []string{}
	}

	const insertTaskQuery = `
INSERT INTO tasks (id,
                   title,
                   description,
                   due_date,
                   priority,
                   status,
                   tags,
                   created_by,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	_, err = r.pgPool.Exec(
		ctx,
		insertTaskQuery,
		created.ID,
		created.Title,
		created.Description,
		created.DueDate,
		created.Priority,
		created.Status,
		created.Tags,
		created.CreatedBy,
		created.CreatedAt,
		created.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to insert task")
		return nil, err
	}

	r.logger.Debug().
		Str("task_id", created.ID).
		Msg("inserted task")
	return created, nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	task := &models.Task{ID: id}

	const selectTaskQuery = `
SELECT title,
       description,
       due_date,
       priority,
       status,
       tags,
       created_by,
       created_at,
       updated_at
FROM tasks
WHERE id = $1
`
	err := r.pgPool.QueryRow(
		ctx,
		selectTaskQuery,
		id,
	).Scan(
		&task.Title,
		&task.Description,
		&task.DueDate,
		&task.Priority,
		&task.Status,
		&task.Tags,
		&task.CreatedBy,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, services.ErrTaskNotFound
		}

		r.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to select task")
		return nil, err
	}

	task.AssignedTo, err = r.selectAssignees(ctx, id)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *TaskRepository) List(ctx context.Context, filter services.TaskFilter) ([]*models.Task, int, error) {
	where, args := buildTaskFilter(filter)

	countQuery := "SELECT count(*) FROM tasks t" + where
	var total int
	err := r.pgPool.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to count tasks")
		return nil, 0, err
	}

	query := `
SELECT t.id,
       t.title,
       t.description,
       t.due_date,
       t.priority,
       t.status,
       t.tags,
       t.created_by,
       t.created_at,
       t.updated_at
FROM tasks t` + where + orderClause(filter)

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.PageSize, (page-1)*filter.PageSize)
	}

	rows, err := r.pgPool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to select tasks")
		return nil, 0, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task := &models.Task{}
		err = rows.Scan(
			&task.ID,
			&task.Title,
			&task.Description,
			&task.DueDate,
			&task.Priority,
			&task.Status,
			&task.Tags,
			&task.CreatedBy,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			r.logger.Error().
				Err(err).
				Msg("failed to scan task")
			return nil, 0, err
		}
		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, 0, err
	}

	err = r.attachAssignees(ctx, tasks)
	if err != nil {
		return nil, 0, err
	}

	r.logger.Debug().
		Int("count", len(tasks)).
		Int("total", total).
		Msg("selected tasks")
	return tasks, total, nil
}

func (r *TaskRepository) Update(ctx context.Context, id string, update services.TaskUpdate) (*models.Task, error) {
	set := make([]string, 0, 6)
	args := make([]any, 0, 8)

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.DueDate != nil {
		add("due_date", *update.DueDate)
	}
	if update.Priority != nil {
		add("priority", *update.Priority)
	}
	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.Tags != nil {
		add("tags", update.Tags)
	}
	add("updated_at", time.Now())

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE tasks SET %s WHERE id = $%d",
		strings.Join(set, ", "),
		len(args),
	)

	tag, err := r.pgPool.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to update task")
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, services.ErrTaskNotFound
	}

	r.logger.Debug().
		Str("task_id", id).
		Msg("updated task")
	return r.GetByID(ctx, id)
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1
`
	tag, err := r.pgPool.Exec(ctx, deleteTaskQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to delete task")
		return err
	}
	if tag.RowsAffected() == 0 {
		return services.ErrTaskNotFound
	}

	r.logger.Debug().
		Str("task_id", id).
		Msg("deleted task")
	return nil
}

func (r *TaskRepository) AddAssignees(ctx context.Context, id string, userIDs []string) (*models.Task, error) {
	const insertAssigneesQuery = `
INSERT INTO task_assignees (task_id, user_id)
SELECT $1, unnest($2::text[])
ON CONFLICT DO NOTHING
`
	_, err := r.pgPool.Exec(ctx, insertAssigneesQuery, id, userIDs)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, services.ErrTaskNotFound
		}

		r.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to insert assignees")
		return nil, err
	}

	r.logger.Debug().
		Str("task_id", id).
		Int("count", len(userIDs)).
		Msg("added assignees")
	return r.GetByID(ctx, id)
}

func (r *TaskRepository) RemoveAssignees(ctx context.Context, id string, userIDs []string) (*models.Task, error) {
	const deleteAssigneesQuery = `
DELETE FROM task_assignees
WHERE task_id = $1 AND
      user_id = ANY ($2)
`
	_, err := r.pgPool.Exec(ctx, deleteAssigneesQuery, id, userIDs)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to delete assignees")
		return nil, err
	}

	r.logger.Debug().
		Str("task_id", id).
		Int("count", len(userIDs)).
		Msg("removed assignees")
	return r.GetByID(ctx, id)
}

func (r *TaskRepository) selectAssignees(ctx context.Context, taskID string) ([]string, error) {
	const selectAssigneesQuery = `
SELECT user_id
FROM task_assignees
WHERE task_id = $1
ORDER BY user_id
`
	rows, err := r.pgPool.Query(ctx, selectAssigneesQuery, taskID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to select assignees")
		return nil, err
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		err = rows.Scan(&userID)
		if err != nil {
			return nil, err
		}
		userIDs = append(userIDs, userID)
	}
	return userIDs, rows.Err()
}

func (r *TaskRepository) attachAssignees(ctx context.Context, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	byID := make(map[string]*models.Task, len(tasks))
	taskIDs := make([]string, len(tasks))
	for i, task := range tasks {
		byID[task.ID] = task
		taskIDs[i] = task.ID
	}

	const selectAssigneesQuery = `
SELECT task_id, user_id
FROM task_assignees
WHERE task_id = ANY ($1)
ORDER BY user_id
`
	rows, err := r.pgPool.Query(ctx, selectAssigneesQuery, taskIDs)
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to select assignees")
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var taskID, userID string
		err = rows.Scan(&taskID, &userID)
		if err != nil {
			return err
		}
		if task, ok := byID[taskID]; ok {
			task.AssignedTo = append(task.AssignedTo, userID)
		}
	}
	return rows.Err()
}

func buildTaskFilter(filter services.TaskFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		clauses = append(clauses, "t.status = "+arg(filter.Status))
	}
	if filter.Priority != "" {
		clauses = append(clauses, "t.priority = "+arg(filter.Priority))
	}
	if filter.Search != "" {
		pattern := arg("%" + escapeLike(filter.Search) + "%")
		clauses = append(clauses, fmt.Sprintf(
			"(t.title ILIKE %s OR t.description ILIKE %s)", pattern, pattern))
	}
	if filter.ViewerID != "" {
		viewer := arg(filter.ViewerID)
		clauses = append(clauses, fmt.Sprintf(
			"(t.created_by = %s OR EXISTS (SELECT 1 FROM task_assignees a WHERE a.task_id = t.id AND a.user_id = %s))",
			viewer, viewer))
	}
	if filter.AssignedTo != "" {
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM task_assignees a WHERE a.task_id = t.id AND a.user_id = %s)",
			arg(filter.AssignedTo)))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// escapeLike neutralizes the LIKE metacharacters so a search term matches as
// a literal substring. Backslash goes first.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// sortColumns whitelists sortable fields; anything else falls back to
// creation time. Priority sorts by severity rank, not alphabetically.
var sortColumns = map[string]string{
	"createdAt": "t.created_at",
	"updatedAt": "t.updated_at",
	"dueDate":   "t.due_date",
	"title":     "t.title",
	"status":    "t.status",
	"priority":  "CASE t.priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 ELSE 4 END",
}

func orderClause(filter services.TaskFilter) string {
	column, ok := sortColumns[filter.SortBy]
	if !ok {
		return " ORDER BY t.created_at DESC"
	}

	direction := "ASC"
	if strings.EqualFold(filter.SortOrder, "desc") {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, direction)
}
