package database

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes for task filtering and the
// analytics queries. Safe to run repeatedly.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Task list filtering and sorting
		{"tasks", "idx_tasks_owner_status", "owner_id, status"},
		{"tasks", "idx_tasks_priority", "priority"},
		{"tasks", "idx_tasks_due_date", "due_date"},

		// Analytics buckets group by these
		{"tasks", "idx_tasks_created_at", "created_at"},
		{"tasks", "idx_tasks_completed_at", "completed_at"},
	}

	for _, idx := range indexes {
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Count(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info().Str("index", idx.name).Str("table", idx.table).Msg("created index")
	}

	return nil
}
