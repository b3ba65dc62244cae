package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/croswell/taskmaster-api/internal/models"
)

// Columns the list endpoint may sort by. Anything else falls back to
// created_at so user input never reaches the ORDER BY clause directly.
var sortableColumns = map[string]string{
	"created_at": "tasks.created_at",
	"updated_at": "tasks.updated_at",
	"due_date":   "tasks.due_date",
	"priority":   "tasks.priority",
	"status":     "tasks.status",
	"title":      "tasks.title",
}

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByOwner finds a task by ID scoped to its owner
func (r *GormTaskRepository) FindByOwner(id, ownerID uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.Where("owner_id = ?", ownerID).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering, sorting and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	query := r.db.Model(&models.Task{}).Where("tasks.owner_id = ?", filter.OwnerID)

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.DueAfter != nil {
		query = query.Where("tasks.due_date >= ?", *filter.DueAfter)
	}
	if filter.DueBefore != nil {
		query = query.Where("tasks.due_date < ?", *filter.DueBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortableColumns[filter.SortBy]
	if !ok {
		column = "tasks.created_at"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	listQuery := query.Order(fmt.Sprintf("%s %s", column, direction))

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		listQuery = listQuery.Offset(offset).Limit(filter.PageSize)
	}

	var tasks []models.Task
	if err := listQuery.Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// Delete soft deletes a task
func (r *GormTaskRepository) Delete(id, ownerID uint64) error {
	return r.db.Where("owner_id = ?", ownerID).Delete(&models.Task{}, id).Error
}

// StatusCounts returns the number of tasks per status for an owner
func (r *GormTaskRepository) StatusCounts(ownerID uint64) (map[models.TaskStatus]int64, error) {
	var rows []struct {
		Status models.TaskStatus
		Count  int64
	}

	err := r.db.Model(&models.Task{}).
		Select("status, COUNT(*) AS count").
		Where("owner_id = ?", ownerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.TaskStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	return counts, nil
}

// CountOverdue counts unfinished tasks whose due date has passed
func (r *GormTaskRepository) CountOverdue(ownerID uint64, now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Task{}).
		Where("owner_id = ?", ownerID).
		Where("due_date < ?", now).
		Where("status <> ?", models.TaskStatusCompleted).
		Count(&count).Error

	return count, err
}

// DailyCounts returns per-day created/completed counts in [from, to].
// DATE() is understood by both the postgres runtime and the sqlite test
// databases.
func (r *GormTaskRepository) DailyCounts(ownerID uint64, from, to time.Time) ([]DailyTaskCount, error) {
	var created []struct {
		Day   string
		Count int64
	}
	err := r.db.Model(&models.Task{}).
		Select("DATE(created_at) AS day, COUNT(*) AS count").
		Where("owner_id = ?", ownerID).
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("DATE(created_at)").
		Scan(&created).Error
	if err != nil {
		return nil, err
	}

	var completed []struct {
		Day   string
		Count int64
	}
	err = r.db.Model(&models.Task{}).
		Select("DATE(completed_at) AS day, COUNT(*) AS count").
		Where("owner_id = ?", ownerID).
		Where("completed_at IS NOT NULL").
		Where("completed_at >= ? AND completed_at < ?", from, to).
		Group("DATE(completed_at)").
		Scan(&completed).Error
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*DailyTaskCount)
	for _, row := range created {
		byDay[row.Day] = &DailyTaskCount{Day: row.Day, Created: row.Count}
	}
	for _, row := range completed {
		if entry, ok := byDay[row.Day]; ok {
			entry.Completed = row.Count
			continue
		}
		byDay[row.Day] = &DailyTaskCount{Day: row.Day, Completed: row.Count}
	}

	counts := make([]DailyTaskCount, 0, len(byDay))
	for _, entry := range byDay {
		counts = append(counts, *entry)
	}

	return counts, nil
}

// CompletedByHour returns completed-task counts keyed by hour of day.
func (r *GormTaskRepository) CompletedByHour(ownerID uint64) (map[int]int64, error) {
	expr := "EXTRACT(HOUR FROM completed_at)::int"
	if r.db.Dialector.Name() == "sqlite" {
		expr = "CAST(strftime('%H', completed_at) AS INTEGER)"
	}
	return r.completedBuckets(ownerID, expr)
}

// CompletedByWeekday returns completed-task counts keyed by day of week,
// 0=Sunday in both dialects.
func (r *GormTaskRepository) CompletedByWeekday(ownerID uint64) (map[int]int64, error) {
	expr := "EXTRACT(DOW FROM completed_at)::int"
	if r.db.Dialector.Name() == "sqlite" {
		expr = "CAST(strftime('%w', completed_at) AS INTEGER)"
	}
	return r.completedBuckets(ownerID, expr)
}

func (r *GormTaskRepository) completedBuckets(ownerID uint64, expr string) (map[int]int64, error) {
	var rows []struct {
		Bucket int
		Count  int64
	}

	err := r.db.Model(&models.Task{}).
		Select(expr + " AS bucket, COUNT(*) AS count").
		Where("owner_id = ?", ownerID).
		Where("status = ?", models.TaskStatusCompleted).
		Where("completed_at IS NOT NULL").
		Group(expr).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[int]int64, len(rows))
	for _, row := range rows {
		counts[row.Bucket] = row.Count
	}

	return counts, nil
}
