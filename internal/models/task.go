package models

import "time"

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

func IsValidPriority(priority string) bool {
	return priority == PriorityLow ||
		priority == PriorityMedium ||
		priority == PriorityHigh ||
		priority == PriorityUrgent
}

func IsValidStatus(status string) bool {
	return status == StatusPending ||
		status == StatusInProgress ||
		status == StatusCompleted ||
		status == StatusCancelled
}

type Task struct {
	ID          string
	Title       string
	Description string
	DueDate     time.Time
	Priority    string
	Status      string
	Tags        []string
	// CreatedBy is set once at creation and never changes.
	CreatedBy string
	// AssignedTo is a set; the store keeps it free of duplicates.
	AssignedTo []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (t *Task) IsAssignee(userID string) bool {
	for _, id := range t.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}
