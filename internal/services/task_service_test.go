package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard/internal/authz"
	"github.com/taskboard/taskboard/internal/models"
)

// fakeTaskStore implements TaskStore in memory with the same set semantics
// the postgres repository guarantees.
type fakeTaskStore struct {
	tasks  map[string]*models.Task
	nextID int
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]*models.Task)}
}

func (s *fakeTaskStore) Create(_ context.Context, task *models.Task) (*models.Task, error) {
	s.nextID++
	now := time.Now()
	created := *task
	created.ID = fmt.Sprintf("task-%d", s.nextID)
	created.CreatedAt = now
	created.UpdatedAt = now
	s.tasks[created.ID] = &created
	return copyTask(&created), nil
}

func (s *fakeTaskStore) GetByID(_ context.Context, id string) (*models.Task, error) {
	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return copyTask(task), nil
}

func (s *fakeTaskStore) List(_ context.Context, filter TaskFilter) ([]*models.Task, int, error) {
	var matches []*models.Task
	for _, task := range s.tasks {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(task.Title), needle) &&
				!strings.Contains(strings.ToLower(task.Description), needle) {
				continue
			}
		}
		if filter.ViewerID != "" &&
			task.CreatedBy != filter.ViewerID &&
			!task.IsAssignee(filter.ViewerID) {
			continue
		}
		if filter.AssignedTo != "" && !task.IsAssignee(filter.AssignedTo) {
			continue
		}
		matches = append(matches, copyTask(task))
	}

	total := len(matches)
	if filter.PageSize > 0 {
		start := (filter.Page - 1) * filter.PageSize
		if start > total {
			start = total
		}
		end := start + filter.PageSize
		if end > total {
			end = total
		}
		matches = matches[start:end]
	}
	return matches, total, nil
}

func (s *fakeTaskStore) Update(_ context.Context, id string, update TaskUpdate) (*models.Task, error) {
	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.DueDate != nil {
		task.DueDate = *update.DueDate
	}
	if update.Priority != nil {
		task.Priority = *update.Priority
	}
	if update.Status != nil {
		task.Status = *update.Status
	}
	if update.Tags != nil {
		task.Tags = update.Tags
	}
	task.UpdatedAt = time.Now()
	return copyTask(task), nil
}

func (s *fakeTaskStore) Delete(_ context.Context, id string) error {
	if _, ok := s.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *fakeTaskStore) AddAssignees(_ context.Context, id string, userIDs []string) (*models.Task, error) {
	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	for _, userID := range userIDs {
		if !task.IsAssignee(userID) {
			task.AssignedTo = append(task.AssignedTo, userID)
		}
	}
	return copyTask(task), nil
}

func (s *fakeTaskStore) RemoveAssignees(_ context.Context, id string, userIDs []string) (*models.Task, error) {
	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	remove := make(map[string]bool, len(userIDs))
	for _, userID := range userIDs {
		remove[userID] = true
	}
	kept := task.AssignedTo[:0]
	for _, userID := range task.AssignedTo {
		if !remove[userID] {
			kept = append(kept, userID)
		}
	}
	task.AssignedTo = kept
	return copyTask(task), nil
}

func copyTask(task *models.Task) *models.Task {
	clone := *task
	clone.AssignedTo = append([]string(nil), task.AssignedTo...)
	clone.Tags = append([]string(nil), task.Tags...)
	return &clone
}

type fakeDirectory struct {
	users map[string]*models.User
}

func newFakeDirectory(users ...*models.User) *fakeDirectory {
	d := &fakeDirectory{users: make(map[string]*models.User)}
	for _, user := range users {
		d.users[user.ID] = user
	}
	return d
}

func (d *fakeDirectory) Insert(_ context.Context, user *models.User) error {
	for _, existing := range d.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return ErrUserAlreadyExists
		}
	}
	d.users[user.ID] = user
	return nil
}

func (d *fakeDirectory) GetByID(_ context.Context, id string) (*models.User, error) {
	user, ok := d.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (d *fakeDirectory) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range d.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (d *fakeDirectory) ListByRole(_ context.Context, role string) ([]*models.User, error) {
	var users []*models.User
	for _, user := range d.users {
		if user.Role == role {
			users = append(users, user)
		}
	}
	return users, nil
}

var (
	adminP   = authz.Principal{ID: "admin-1", Role: models.RoleAdmin}
	managerP = authz.Principal{ID: "manager-1", Role: models.RoleManager}
	userP    = authz.Principal{ID: "user-1", Role: models.RoleUser}
)

func newTestTaskService(t *testing.T) (TaskService, *fakeTaskStore, *fakeDirectory) {
	t.Helper()
	store := newFakeTaskStore()
	directory := newFakeDirectory(
		&models.User{ID: adminP.ID, Role: models.RoleAdmin},
		&models.User{ID: managerP.ID, Role: models.RoleManager},
		&models.User{ID: userP.ID, Role: models.RoleUser},
		&models.User{ID: "user-2", Role: models.RoleUser},
	)
	svc := NewTaskService(zerolog.Nop(), store, directory)
	return svc, store, directory
}

func createTaskAs(t *testing.T, svc TaskService, p authz.Principal) *models.Task {
	t.Helper()
	task, err := svc.CreateTask(context.Background(), p, CreateTaskParams{
		Title:       "quarterly report",
		Description: "compile the numbers",
		DueDate:     time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)
	return task
}

func TestCreateTask_SetsCreatorAndDefaults(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestTaskService(t)

	task := createTaskAs(t, svc, userP)
	assert.Equal(t, userP.ID, task.CreatedBy)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Empty(t, task.AssignedTo)
}

func TestCreateTask_NormalizesNilTags(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestTaskService(t)

	// Tag-less creates are the common case; the store must receive an
	// empty set, not nil, or a NOT NULL tags column rejects the row.
	task := createTaskAs(t, svc, userP)
	stored := store.tasks[task.ID]
	require.NotNil(t, stored.Tags)
	assert.Empty(t, stored.Tags)
}

func TestCreateTask_RejectsPastDueDate(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestTaskService(t)

	_, err := svc.CreateTask(context.Background(), userP, CreateTaskParams{
		Title:       "late",
		Description: "already overdue",
		DueDate:     time.Now().Add(-time.Hour),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "dueDate")
}

func TestGetTask_NotFoundPrecedesForbidden(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestTaskService(t)

	_, err := svc.GetTask(context.Background(), userP, "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestGetTask_AssigneeMayRead(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestTaskService(t)

	task := createTaskAs(t, svc, adminP)
	_, err := store.AddAssignees(context.Background(), task.ID, []string{userP.ID})
	require.NoError(t, err)

	got, err := svc.GetTask(context.Background(), userP, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	// Assignment grants read, not delete.
	err = svc.DeleteTask(context.Background(), userP, task.ID)
	var denied *AccessDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestUpdateTask_ManagerNotOwnerForbidden(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestTaskService(t)

	task := createTaskAs(t, svc, adminP)

	title := "renamed"
	_, err := svc.UpdateTask(context.Background(), managerP, task.ID, TaskUpdate{Title: &title})
	var denied *AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.NotEmpty(t, denied.Reason)
}

func TestUpdateTask_RevalidatesFields(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestTaskService(t)

	task := createTaskAs(t, svc, userP)

	past := time.Now().Add(-time.Hour)
	_, err := svc.UpdateTask(context.Background(), userP, task.ID, TaskUpdate{DueDate: &past})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "dueDate")
}

func TestAssignTask_RequiresTargets(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestTaskService(t)

	task := createTaskAs(t, svc, managerP)

	// Presence validation runs before any ownership check.
	_, err := svc.AssignTask(context.Background(), managerP, task.ID, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "assignedTo")
}

func TestAssignTask_ManagerOwnTask(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestTaskService(t)

	task := createTaskAs(t, svc, managerP)

	updated, err := svc.AssignTask(context.Background(), managerP, task.ID, []string{userP.ID, "user-2"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{userP.ID, "user-2"}, updated.AssignedTo)
}

func TestAssignTask_IsIdempotent(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestTaskService(t)

	task := createTaskAs(t, svc, managerP)

	_, err := svc.AssignTask(context.Background(), managerP, task.ID, []string{userP.ID})
	require.NoError(t, err)
	updated, err := svc.AssignTask(context.Background(), managerP, task.ID, []string{userP.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{userP.ID}, updated.AssignedTo)
}

func TestAssignTask_UserRoleNeverAssigns(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestTaskService(t)

	task := createTaskAs(t, svc, userP)

	_, err := svc.AssignTask(context.Background(), userP, task.ID, []string{"user-2"})
	var denied *AccessDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestAssignTask_ManagerCannotTargetAdmin(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestTaskService(t)

	task := createTaskAs(t, svc, managerP)

	// Mixing a valid target with an admin target must leave the set
	// untouched: all-or-nothing.
	_, err := svc.AssignTask(context.Background(), managerP, task.ID, []string{userP.ID, adminP.ID})
	var denied *AccessDeniedError
	require.ErrorAs(t, err, &denied)

	stored, err := store.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.AssignedTo)
}

func TestAssignTask_AdminMayTargetAdmin(t *testing.T) {
	t.Parallel()
	svc, _, directory := newTestTaskService(t)

	require.NoError(t, directory.Insert(context.Background(), &models.User{
		ID: "admin-2", Email: "a2@example.com", Username: "admin2", Role: models.RoleAdmin,
	}))

	task := createTaskAs(t, svc, adminP)
	updated, err := svc.AssignTask(context.Background(), adminP, task.ID, []string{"admin-2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin-2"}, updated.AssignedTo)
}

func TestAssignTask_UnresolvableTargetAborts(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestTaskService(t)

	task := createTaskAs(t, svc, managerP)

	_, err := svc.AssignTask(context.Background(), managerP, task.ID, []string{userP.ID, "ghost"})
	require.ErrorIs(t, err, ErrUserNotFound)

	stored, err := store.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.AssignedTo)
}

func TestUnassignTask_AbsentAssigneeIsNoop(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestTaskService(t)

	task := createTaskAs(t, svc, managerP)

	updated, err := svc.UnassignTask(context.Background(), managerP, task.ID, []string{userP.ID})
	require.NoError(t, err)
	assert.Empty(t, updated.AssignedTo)
}

func TestListTasks_UserNeverSeesUnrelatedTasks(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestTaskService(t)

	mine := createTaskAs(t, svc, userP)
	other := createTaskAs(t, svc, adminP)
	assigned := createTaskAs(t, svc, managerP)
	_, err := store.AddAssignees(context.Background(), assigned.ID, []string{userP.ID})
	require.NoError(t, err)

	filters := []ListTasksParams{
		{},
		{Status: models.StatusPending},
		{Priority: models.PriorityMedium},
		{Search: "report"},
	}
	for _, params := range filters {
		page, err := svc.ListTasks(context.Background(), userP, params)
		require.NoError(t, err)
		for _, task := range page.Items {
			assert.NotEqual(t, other.ID, task.ID)
			ownerOrAssignee := task.CreatedBy == userP.ID || task.IsAssignee(userP.ID)
			assert.True(t, ownerOrAssignee, "task %s leaked to user", task.ID)
		}
	}

	page, err := svc.ListTasks(context.Background(), userP, ListTasksParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	ids := []string{page.Items[0].ID, page.Items[1].ID}
	assert.ElementsMatch(t, []string{mine.ID, assigned.ID}, ids)
}

func TestListTasks_AdminSeesEverything(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestTaskService(t)

	createTaskAs(t, svc, userP)
	createTaskAs(t, svc, managerP)
	createTaskAs(t, svc, adminP)

	page, err := svc.ListTasks(context.Background(), adminP, ListTasksParams{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Pages)
}

func TestListTasks_Pagination(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestTaskService(t)

	for i := 0; i < 5; i++ {
		createTaskAs(t, svc, adminP)
	}

	page, err := svc.ListTasks(context.Background(), adminP, ListTasksParams{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Len(t, page.Items, 2)
}

func TestAssignedTasks_SelfAndPrivileged(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestTaskService(t)

	task := createTaskAs(t, svc, managerP)
	_, err := store.AddAssignees(context.Background(), task.ID, []string{"user-2"})
	require.NoError(t, err)

	// A plain user may not view another user's assigned list.
	_, err = svc.AssignedTasks(context.Background(), userP, "user-2")
	var denied *AccessDeniedError
	require.ErrorAs(t, err, &denied)

	// A manager may.
	tasks, err := svc.AssignedTasks(context.Background(), managerP, "user-2")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)

	// Self access is always fine.
	tasks, err = svc.AssignedTasks(context.Background(), authz.Principal{ID: "user-2", Role: models.RoleUser}, "user-2")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestAssignedTasks_UnknownUser(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestTaskService(t)

	// An unknown user yields not-found, not an empty list.
	_, err := svc.AssignedTasks(context.Background(), managerP, "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)

	// A caller without view rights learns nothing about user existence.
	_, err = svc.AssignedTasks(context.Background(), userP, "ghost")
	var denied *AccessDeniedError
	require.ErrorAs(t, err, &denied)
}

func TestDeleteTask_Admin(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestTaskService(t)

	task := createTaskAs(t, svc, userP)
	require.NoError(t, svc.DeleteTask(context.Background(), adminP, task.ID))

	_, err := store.GetByID(context.Background(), task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
