package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/croswell/taskmaster-api/internal/dto"
	apierrors "github.com/croswell/taskmaster-api/internal/errors"
	"github.com/croswell/taskmaster-api/internal/middleware"
	"github.com/croswell/taskmaster-api/internal/models"
	"github.com/croswell/taskmaster-api/internal/services"
	"github.com/croswell/taskmaster-api/internal/utils"
)

// TaskHandler serves the task CRUD and stats endpoints.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the current user's tasks with filtering and sorting.
// Supported query parameters: status, priority, due_before, due_after,
// sort_by, sort_order, page, limit.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	input := services.ListTasksInput{
		OwnerID:  userID,
		SortBy:   c.DefaultQuery("sort_by", "created_at"),
		SortDesc: c.DefaultQuery("sort_order", "desc") != "asc",
	}

	if status := c.Query("status"); status != "" {
		s := models.TaskStatus(status)
		input.Status = &s
	}
	if priority := c.Query("priority"); priority != "" {
		p := models.TaskPriority(priority)
		input.Priority = &p
	}
	if raw := c.Query("due_before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid due_before")
			return
		}
		input.DueBefore = &t
	}
	if raw := c.Query("due_after"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid due_after")
			return
		}
		input.DueAfter = &t
	}

	params := utils.GetPaginationParams(c)
	input.Page = params.Page
	input.PageSize = params.Limit

	tasks, total, err := h.taskService.ListTasks(input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.Limit, total))
}

// CreateTask creates a new task owned by the current user.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		Title            string     `json:"title" binding:"required"`
		Description      string     `json:"description"`
		Status           string     `json:"status"`
		Priority         string     `json:"priority"`
		DueDate          *time.Time `json:"due_date"`
		EstimatedMinutes *int       `json:"estimated_minutes"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		Status:           models.TaskStatus(req.Status),
		Priority:         models.TaskPriority(req.Priority),
		DueDate:          req.DueDate,
		EstimatedMinutes: req.EstimatedMinutes,
		OwnerID:          userID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GetTask returns one of the current user's tasks.
func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, taskID, ok := taskRequestIDs(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(taskID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateTask updates one of the current user's tasks. The raw body is
// inspected so that an explicit "due_date": null clears the deadline while
// an absent field leaves it untouched.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, taskID, ok := taskRequestIDs(c)
	if !ok {
		return
	}

	var rawReq map[string]any
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var input services.UpdateTaskInput

	if title, ok := stringField(rawReq, "title"); ok {
		input.Title = title
	}
	if description, ok := stringField(rawReq, "description"); ok {
		input.Description = description
	}
	if status, ok := stringField(rawReq, "status"); ok && status != nil {
		s := models.TaskStatus(*status)
		input.Status = &s
	}
	if priority, ok := stringField(rawReq, "priority"); ok && priority != nil {
		p := models.TaskPriority(*priority)
		input.Priority = &p
	}
	if raw, ok := rawReq["due_date"]; ok {
		if raw == nil {
			input.ClearDueDate = true
		} else if value, ok := raw.(string); ok {
			parsed, err := time.Parse(time.RFC3339, value)
			if err != nil {
				apierrors.BadRequest(c, "Invalid due_date")
				return
			}
			input.DueDate = &parsed
		}
	}
	if minutes, ok := intField(rawReq, "estimated_minutes"); ok {
		input.EstimatedMinutes = minutes
	}
	if minutes, ok := intField(rawReq, "actual_minutes"); ok {
		input.ActualMinutes = minutes
	}

	task, err := h.taskService.UpdateTask(taskID, userID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask removes one of the current user's tasks.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, taskID, ok := taskRequestIDs(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(taskID, userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetStats returns the current user's task summary statistics.
func (h *TaskHandler) GetStats(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	stats, err := h.taskService.Stats(userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func taskRequestIDs(c *gin.Context) (userID, taskID uint64, ok bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return 0, 0, false
	}

	taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		return 0, 0, false
	}

	return userID, taskID, true
}

func stringField(raw map[string]any, key string) (*string, bool) {
	value, ok := raw[key]
	if !ok {
		return nil, false
	}
	str, ok := value.(string)
	if !ok {
		return nil, false
	}
	return &str, true
}

func intField(raw map[string]any, key string) (*int, bool) {
	value, ok := raw[key]
	if !ok {
		return nil, false
	}
	// JSON numbers decode as float64
	num, ok := value.(float64)
	if !ok {
		return nil, false
	}
	n := int(num)
	return &n, true
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPriority):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "")
	}
}
