package services

import (
	"time"

	"github.com/taskboard/taskboard/internal/models"
)

func validateCreateTask(params CreateTaskParams, now time.Time) *ValidationError {
	fields := make(map[string]string)

	if params.Title == "" {
		fields["title"] = "title is required"
	} else if len(params.Title) > 200 {
		fields["title"] = "title cannot exceed 200 characters"
	}
	if params.Description == "" {
		fields["description"] = "description is required"
	}
	if params.DueDate.IsZero() {
		fields["dueDate"] = "due date is required"
	} else if params.DueDate.Before(now) {
		fields["dueDate"] = "due date cannot be in the past"
	}
	if params.Priority != "" && !models.IsValidPriority(params.Priority) {
		fields["priority"] = "priority must be one of: low, medium, high, urgent"
	}
	if params.Status != "" && !models.IsValidStatus(params.Status) {
		fields["status"] = "status must be one of: pending, in-progress, completed, cancelled"
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func validateTaskUpdate(update TaskUpdate, now time.Time) *ValidationError {
	fields := make(map[string]string)

	if update.Title != nil {
		if *update.Title == "" {
			fields["title"] = "title cannot be empty"
		} else if len(*update.Title) > 200 {
			fields["title"] = "title cannot exceed 200 characters"
		}
	}
	if update.Description != nil && *update.Description == "" {
		fields["description"] = "description cannot be empty"
	}
	if update.DueDate != nil && update.DueDate.Before(now) {
		fields["dueDate"] = "due date cannot be in the past"
	}
	if update.Priority != nil && !models.IsValidPriority(*update.Priority) {
		fields["priority"] = "priority must be one of: low, medium, high, urgent"
	}
	if update.Status != nil && !models.IsValidStatus(*update.Status) {
		fields["status"] = "status must be one of: pending, in-progress, completed, cancelled"
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
