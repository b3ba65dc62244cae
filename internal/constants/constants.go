package constants

// Authentication
const (
	MinPasswordLength = 8

	ContextKeyUserID = "user_id"
	ContextKeyUser   = "current_user"
)

// Pagination
const (
	MinPage         = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AI suggestions
const (
	MaxSuggestedTasks = 10
)
