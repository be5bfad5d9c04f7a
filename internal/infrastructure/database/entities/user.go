package entities

import "time"

// User is the persisted account record backing domain/user.User.
type User struct {
	ID           string `gorm:"type:varchar(40);primaryKey"`
	Name         string `gorm:"type:varchar(120);not null"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"type:varchar(255);not null"`
	MFASecret    *string `gorm:"type:varchar(255)"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string { return "users" }
