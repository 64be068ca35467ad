package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/taskboard/taskboard/internal/authz"
	"github.com/taskboard/taskboard/internal/models"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUserPasswordMismatch = errors.New("user password mismatch")
)

// AccessDeniedError carries the policy decision reason for a Forbidden
// response. It is produced only from typed authz decisions, never ad hoc.
type AccessDeniedError struct {
	Reason string
}

func (e *AccessDeniedError) Error() string {
	return e.Reason
}

func newAccessDenied(d authz.Decision) error {
	return &AccessDeniedError{Reason: d.Reason}
}

// ValidationError carries per-field messages for a BadRequest response.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Fields))
	for field, message := range e.Fields {
		messages = append(messages, fmt.Sprintf("%s: %s", field, message))
	}
	sort.Strings(messages)
	return strings.Join(messages, "; ")
}

// TaskStore is the persistence contract for tasks. Implementations must be
// safe for concurrent use; atomicity of individual operations is their
// responsibility.
type TaskStore interface {
	// Create assigns an id and timestamps and persists the task.
	Create(ctx context.Context, task *models.Task) (*models.Task, error)

	// GetByID returns ErrTaskNotFound if no task has the given id.
	GetByID(ctx context.Context, id string) (*models.Task, error)

	// List returns the matching page of tasks and the total match count.
	List(ctx context.Context, filter TaskFilter) ([]*models.Task, int, error)

	// Update merges the non-nil fields into the task. CreatedBy is never
	// touched. Returns ErrTaskNotFound if no task has the given id.
	Update(ctx context.Context, id string, update TaskUpdate) (*models.Task, error)

	// Delete returns ErrTaskNotFound if no task has the given id.
	Delete(ctx context.Context, id string) error

	// AddAssignees unions the given user ids into the assignee set.
	// Already-present ids are ignored.
	AddAssignees(ctx context.Context, id string, userIDs []string) (*models.Task, error)

	// RemoveAssignees subtracts the given user ids from the assignee set.
	// Absent ids are a no-op.
	RemoveAssignees(ctx context.Context, id string, userIDs []string) (*models.Task, error)
}

// UserDirectory resolves and stores identities. Every authorization decision
// that depends on a role not already on the principal goes through here.
type UserDirectory interface {
	// Insert returns ErrUserAlreadyExists when the email or username is
	// taken.
	Insert(ctx context.Context, user *models.User) error

	// GetByID returns ErrUserNotFound if no user has the given id.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail returns ErrUserNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	ListByRole(ctx context.Context, role string) ([]*models.User, error)
}

// TaskFilter is the query surface of TaskStore.List. Zero values mean
// "unfiltered" for the optional fields.
type TaskFilter struct {
	Status   string
	Priority string
	// Search matches case-insensitively as a substring of title or
	// description.
	Search string
	// ViewerID, when set, restricts results to tasks the viewer created
	// or is assigned to. The service sets it for non-admin principals.
	ViewerID string
	// AssignedTo, when set, restricts results to tasks assigned to that
	// user.
	AssignedTo string
	SortBy    string
	SortOrder string
	// Page is 1-indexed. PageSize <= 0 disables pagination.
	Page     int
	PageSize int
}

// TaskUpdate is a partial update; nil fields are left unchanged.
type TaskUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *string
	Status      *string
	Tags        []string
}

type TaskPage struct {
	Items    []*models.Task
	Total    int
	Page     int
	PageSize int
	Pages    int
}

type CreateTaskParams struct {
	Title       string
	Description string
	DueDate     time.Time
	Priority    string
	Status      string
	Tags        []string
}

type ListTasksParams struct {
	Status    string
	Priority  string
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// TaskService sequences policy decisions and store operations into the task
// lifecycle. Every method takes the acting principal explicitly.
type TaskService interface {
	// CreateTask attaches the principal as the immutable creator. All
	// roles may create.
	CreateTask(ctx context.Context, p authz.Principal, params CreateTaskParams) (*models.Task, error)

	// ListTasks applies the caller's filter scoped by role: admins see
	// everything, everyone else only tasks they created or are assigned
	// to.
	ListTasks(ctx context.Context, p authz.Principal, params ListTasksParams) (*TaskPage, error)

	// GetTask returns ErrTaskNotFound before any policy check, then an
	// AccessDeniedError for principals outside the read policy.
	GetTask(ctx context.Context, p authz.Principal, taskID string) (*models.Task, error)

	UpdateTask(ctx context.Context, p authz.Principal, taskID string, update TaskUpdate) (*models.Task, error)

	DeleteTask(ctx context.Context, p authz.Principal, taskID string) error

	// AssignTask resolves every target id through the directory and
	// applies the assignment all-or-nothing: any unresolvable id or
	// denied target aborts the call with the store untouched.
	AssignTask(ctx context.Context, p authz.Principal, taskID string, userIDs []string) (*models.Task, error)

	UnassignTask(ctx context.Context, p authz.Principal, taskID string, userIDs []string) (*models.Task, error)

	// AssignedTasks lists the tasks assigned to the user with userID,
	// gated by the assigned-list view policy.
	AssignedTasks(ctx context.Context, p authz.Principal, userID string) ([]*models.Task, error)
}

type SignUpParams struct {
	Email    string
	Username string
	Password string
	Role     string
}

type SignInParams struct {
	Email    string
	Password string
}

type SignInResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// AuthService owns signup, signin and token verification.
type AuthService interface {
	// SignUp hashes the password and stores the user. It returns
	// ErrUserAlreadyExists when the email or username is taken.
	SignUp(ctx context.Context, params SignUpParams) (*models.User, error)

	// SignIn verifies credentials and issues a signed token carrying the
	// user id and role. It returns ErrUserNotFound for an unknown email
	// and ErrUserPasswordMismatch for a wrong password.
	SignIn(ctx context.Context, params SignInParams) (*SignInResult, error)

	// ParseToken verifies a token and returns the principal it carries.
	ParseToken(token string) (authz.Principal, error)
}

// UserService exposes the identity directory to the API surface.
type UserService interface {
	Profile(ctx context.Context, userID string) (*models.User, error)

	// UsersByRole enumerates users with the given role; admin-only.
	UsersByRole(ctx context.Context, p authz.Principal, role string) ([]*models.User, error)
}
