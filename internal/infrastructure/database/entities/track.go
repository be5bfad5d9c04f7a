package entities

import "time"

// Track is the persisted record backing domain/track.Track.
type Track struct {
	ID             string `gorm:"type:varchar(40);primaryKey"`
	OwnerUserID    string `gorm:"type:varchar(40);index;not null"`
	Title          string `gorm:"type:varchar(255);not null"`
	Public         bool   `gorm:"not null;default:false"`
	CiphertextPath string `gorm:"type:varchar(255);not null"`
	ContentHash    string `gorm:"type:char(64);uniqueIndex;not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Track) TableName() string { return "tracks" }
