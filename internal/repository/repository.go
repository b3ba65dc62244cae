package repository

import (
	"time"

	"github.com/croswell/taskmaster-api/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// Update persists changes to a user
	Update(user *models.User) error

	// Delete soft deletes a user and their tasks
	Delete(id uint64) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
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

// DailyTaskCount is one day of per-owner task activity, used by analytics.
type DailyTaskCount struct {
	Day       string
	Created   int64
	Completed int64
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByOwner finds a task by ID scoped to its owner
	FindByOwner(id, ownerID uint64) (*models.Task, error)

	// List retrieves tasks with filtering, sorting and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(task *models.Task) error

	// Delete soft deletes a task
	Delete(id, ownerID uint64) error

	// StatusCounts returns the number of tasks per status for an owner
	StatusCounts(ownerID uint64) (map[models.TaskStatus]int64, error)

	// CountOverdue counts unfinished tasks whose due date has passed
	CountOverdue(ownerID uint64, now time.Time) (int64, error)

	// DailyCounts returns per-day created/completed counts in [from, to]
	DailyCounts(ownerID uint64, from, to time.Time) ([]DailyTaskCount, error)

	// CompletedByHour returns completed-task counts keyed by hour of day (0-23)
	CompletedByHour(ownerID uint64) (map[int]int64, error)

	// CompletedByWeekday returns completed-task counts keyed by day of week
	// (0=Sunday, matching both EXTRACT(DOW) and strftime('%w'))
	CompletedByWeekday(ownerID uint64) (map[int]int64, error)
}
