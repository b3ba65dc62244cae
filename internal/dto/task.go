package dto

import (
	"time"

	"github.com/croswell/taskmaster-api/internal/models"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID               uint64              `json:"id"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Status           models.TaskStatus   `json:"status"`
	Priority         models.TaskPriority `json:"priority"`
	DueDate          *time.Time          `json:"due_date"`
	CompletedAt      *time.Time          `json:"completed_at"`
	EstimatedMinutes *int                `json:"estimated_minutes"`
	ActualMinutes    *int                `json:"actual_minutes"`
	OwnerID          uint64              `json:"owner_id"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
	TotalPages int       `json:"total_pages"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:               task.ID,
		Title:            task.Title,
		Description:      task.Description,
		Status:           task.Status,
		Priority:         task.Priority,
		DueDate:          task.DueDate,
		CompletedAt:      task.CompletedAt,
		EstimatedMinutes: task.EstimatedMinutes,
		ActualMinutes:    task.ActualMinutes,
		OwnerID:          task.OwnerID,
		CreatedAt:        task.CreatedAt,
		UpdatedAt:        task.UpdatedAt,
	}
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = int(totalCount) / pageSize
		if int(totalCount)%pageSize > 0 {
			totalPages++
		}
	}

	return TaskListResponse{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}
