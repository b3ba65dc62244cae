package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/croswell/taskmaster-api/internal/models"
	"github.com/croswell/taskmaster-api/internal/repository"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrTitleRequired   = errors.New("title is required")
	ErrTitleEmpty      = errors.New("title cannot be empty")
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrInvalidPriority = errors.New("invalid task priority")
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo repository.TaskRepository
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	OwnerID   uint64
	Status    *models.TaskStatus
	Priority  *models.TaskPriority
	DueBefore *time.Time
	DueAfter  *time.Time
	SortBy    string
	SortDesc  bool
	Page      int
	PageSize  int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title            string
	Description      string
	Status           models.TaskStatus
	Priority         models.TaskPriority
	DueDate          *time.Time
	EstimatedMinutes *int
	OwnerID          uint64
}

// UpdateTaskInput represents input for updating a task; nil fields are left
// untouched.
type UpdateTaskInput struct {
	Title            *string
	Description      *string
	Status           *models.TaskStatus
	Priority         *models.TaskPriority
	DueDate          *time.Time
	ClearDueDate     bool
	EstimatedMinutes *int
	ActualMinutes    *int
}

// TaskStats summarizes an owner's tasks for the stats endpoint.
type TaskStats struct {
	TotalTasks      int64   `json:"total_tasks"`
	CompletedTasks  int64   `json:"completed_tasks"`
	InProgressTasks int64   `json:"in_progress_tasks"`
	TodoTasks       int64   `json:"todo_tasks"`
	OverdueTasks    int64   `json:"overdue_tasks"`
	CompletionRate  float64 `json:"completion_rate"`
}

// ListTasks returns the owner's tasks matching the provided filters
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, 0, ErrInvalidPriority
	}

	filter := repository.TaskFilter{
		OwnerID:   input.OwnerID,
		Status:    input.Status,
		Priority:  input.Priority,
		DueBefore: input.DueBefore,
		DueAfter:  input.DueAfter,
		SortBy:    input.SortBy,
		SortDesc:  input.SortDesc,
		Page:      input.Page,
		PageSize:  input.PageSize,
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task owned by the given user
func (s *TaskService) GetTask(taskID, ownerID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByOwner(taskID, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// CreateTask creates a new task for its owner
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}

	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	task := &models.Task{
		Title:            input.Title,
		Description:      input.Description,
		Status:           input.Status,
		Priority:         input.Priority,
		DueDate:          input.DueDate,
		EstimatedMinutes: input.EstimatedMinutes,
		OwnerID:          input.OwnerID,
	}

	if task.Status == models.TaskStatusCompleted {
		now := time.Now()
		task.CompletedAt = &now
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// UpdateTask updates an existing task. Moving into completed stamps
// completed_at; moving out of completed clears it.
func (s *TaskService) UpdateTask(taskID, ownerID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.GetTask(taskID, ownerID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrTitleEmpty
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		if *input.Status == models.TaskStatusCompleted && task.Status != models.TaskStatusCompleted {
			now := time.Now()
			task.CompletedAt = &now
		} else if *input.Status != models.TaskStatusCompleted {
			task.CompletedAt = nil
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.EstimatedMinutes != nil {
		task.EstimatedMinutes = input.EstimatedMinutes
	}
	if input.ActualMinutes != nil {
		task.ActualMinutes = input.ActualMinutes
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return task, nil
}

// DeleteTask deletes a task owned by the given user
func (s *TaskService) DeleteTask(taskID, ownerID uint64) error {
	if _, err := s.GetTask(taskID, ownerID); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(taskID, ownerID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// Stats returns the owner's task summary statistics
func (s *TaskService) Stats(ownerID uint64) (*TaskStats, error) {
	counts, err := s.taskRepo.StatusCounts(ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	overdue, err := s.taskRepo.CountOverdue(ownerID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}

	stats := &TaskStats{
		CompletedTasks:  counts[models.TaskStatusCompleted],
		InProgressTasks: counts[models.TaskStatusInProgress],
		TodoTasks:       counts[models.TaskStatusTodo],
		OverdueTasks:    overdue,
	}
	for _, count := range counts {
		stats.TotalTasks += count
	}
	if stats.TotalTasks > 0 {
		stats.CompletionRate = roundRate(float64(stats.CompletedTasks) / float64(stats.TotalTasks) * 100)
	}

	return stats, nil
}
