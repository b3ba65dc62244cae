package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Username     string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	FullName     string         `gorm:"type:varchar(255)" json:"full_name"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	IsSuperuser  bool           `gorm:"not null;default:false" json:"is_superuser"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Tasks []Task `gorm:"foreignKey:OwnerID" json:"-"`
}
