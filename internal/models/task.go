package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Valid reports whether the status is one of the known values.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// Valid reports whether the priority is one of the known values.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

type Task struct {
	ID               uint64         `gorm:"primarykey" json:"id"`
	Title            string         `gorm:"not null;index" json:"title"`
	Description      string         `gorm:"type:text" json:"description"`
	Status           TaskStatus     `gorm:"type:varchar(20);not null;default:'todo'" json:"status"`
	Priority         TaskPriority   `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	DueDate          *time.Time     `json:"due_date"`
	CompletedAt      *time.Time     `json:"completed_at"`
	EstimatedMinutes *int           `json:"estimated_minutes"`
	ActualMinutes    *int           `json:"actual_minutes"`
	OwnerID          uint64         `gorm:"not null;index" json:"owner_id"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Owner User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}
