// Package authz holds the role-based policy table for the task API.
//
// Every permission rule in the system lives in this package, one function per
// action, so the full matrix is auditable in one place:
//
//	action                     admin   manager                      user
//	create task                allow   allow                        allow
//	list tasks                 all     own or assigned              own or assigned
//	read task                  allow   iff owner or assignee        iff owner or assignee
//	update task                allow   iff owner                    iff owner
//	delete task                allow   iff owner                    iff owner
//	assign task                allow   iff owner, targets not admin never
//	unassign task              allow   iff owner                    never
//	view user's assigned list  any     any                          self only
//	list users by role         allow   never                        never
//
// The functions are pure: they decide over facts the caller has already
// loaded. Existence checks (does this task or user exist at all) belong to
// the caller and run before any function here, so NotFound always precedes
// Forbidden.
package authz

import "github.com/taskboard/taskboard/internal/models"

const (
	reasonNotOwnerOrAssignee = "you can only view tasks you created or are assigned to"
	reasonNotOwner           = "only the task creator may modify this task"
	reasonCannotAssign       = "you do not have permission to assign tasks"
	reasonCannotAssignAdmin  = "you cannot assign a task to an admin"
	reasonOnlyOwnAssigned    = "you can only view your own assigned tasks"
	reasonRoleQueryDenied    = "you do not have permission to list users by role"
)

func isOwner(p Principal, task *models.Task) bool {
	return p.ID == task.CreatedBy
}

// CanCreateTask allows every authenticated role; the creator becomes the
// task's immutable owner.
func CanCreateTask(_ Principal) Decision {
	return allow()
}

// ListsAllTasks reports whether the principal sees the task collection
// unscoped. Everyone else is restricted to tasks they created or are
// assigned to.
func ListsAllTasks(p Principal) bool {
	return p.Role == models.RoleAdmin
}

func CanReadTask(p Principal, task *models.Task) Decision {
	if p.Role == models.RoleAdmin {
		return allow()
	}
	if isOwner(p, task) || task.IsAssignee(p.ID) {
		return allow()
	}
	return deny(reasonNotOwnerOrAssignee)
}

func CanUpdateTask(p Principal, task *models.Task) Decision {
	if p.Role == models.RoleAdmin {
		return allow()
	}
	if isOwner(p, task) {
		return allow()
	}
	return deny(reasonNotOwner)
}

func CanDeleteTask(p Principal, task *models.Task) Decision {
	if p.Role == models.RoleAdmin {
		return allow()
	}
	if isOwner(p, task) {
		return allow()
	}
	return deny(reasonNotOwner)
}

// CanAssignTask decides actor eligibility only. Target users are checked one
// by one with CanAssignTarget once the directory has resolved them.
func CanAssignTask(p Principal, task *models.Task) Decision {
	switch p.Role {
	case models.RoleAdmin:
		return allow()
	case models.RoleManager:
		if isOwner(p, task) {
			return allow()
		}
		return deny(reasonNotOwner)
	default:
		return deny(reasonCannotAssign)
	}
}

// CanAssignTarget rejects admin targets for manager actors. Admin actors may
// assign anyone.
func CanAssignTarget(p Principal, target *models.User) Decision {
	if p.Role == models.RoleManager && target.Role == models.RoleAdmin {
		return deny(reasonCannotAssignAdmin)
	}
	return allow()
}

func CanUnassignTask(p Principal, task *models.Task) Decision {
	switch p.Role {
	case models.RoleAdmin:
		return allow()
	case models.RoleManager:
		if isOwner(p, task) {
			return allow()
		}
		return deny(reasonNotOwner)
	default:
		return deny(reasonCannotAssign)
	}
}

// CanViewAssignedTasks gates the assigned-task list of the user with
// requestedID. Admins and managers may view anyone's; plain users only their
// own.
func CanViewAssignedTasks(p Principal, requestedID string) Decision {
	if p.Role == models.RoleAdmin || p.Role == models.RoleManager {
		return allow()
	}
	if p.ID == requestedID {
		return allow()
	}
	return deny(reasonOnlyOwnAssigned)
}

// CanListUsersByRole gates directory enumeration. Managers may not enumerate
// users by role at all; the directory would hand them the admin and manager
// rosters.
func CanListUsersByRole(p Principal, _ string) Decision {
	if p.Role == models.RoleAdmin {
		return allow()
	}
	return deny(reasonRoleQueryDenied)
}
