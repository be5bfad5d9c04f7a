package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sectify/sectify/internal/infrastructure/database/entities"
)

// AutoMigrate applies database schema changes for accounts and tracks.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(&entities.User{}, &entities.Track{}); err != nil {
		return err
	}
	log.Info().Msg("applied user and track migrations")
	return nil
}
