package track

import (
	"context"

	"gorm.io/gorm"

	domain "github.com/sectify/sectify/internal/domain/track"
	"github.com/sectify/sectify/internal/infrastructure/database/entities"
	"github.com/sectify/sectify/internal/platformerrors"
)

// Repository persists domain/track.Track via GORM/Postgres.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, t *domain.Track) error {
	entity := entities.Track{
		ID:             t.ID,
		OwnerUserID:    t.OwnerUserID,
		Title:          t.Title,
		Public:         t.Public,
		CiphertextPath: t.CiphertextPath,
		ContentHash:    t.ContentHash,
	}
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return platformerrors.New(ctx, platformerrors.LayerRepository, platformerrors.KindInternal, "create track", err)
	}
	t.CreatedAt = entity.CreatedAt
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Track, error) {
	var entity entities.Track
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerRepository, platformerrors.KindInternal, "find track by id", err)
	}
	t := mapEntity(entity)
	return &t, nil
}

func (r *Repository) ListPublic(ctx context.Context) ([]*domain.Track, error) {
	var rows []entities.Track
	if err := r.db.WithContext(ctx).Where("public = ?", true).Find(&rows).Error; err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerRepository, platformerrors.KindInternal, "list public tracks", err)
	}
	out := make([]*domain.Track, 0, len(rows))
	for _, row := range rows {
		t := mapEntity(row)
		out = append(out, &t)
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, t *domain.Track) error {
	updates := map[string]interface{}{
		"title":  t.Title,
		"public": t.Public,
	}
	if err := r.db.WithContext(ctx).Model(&entities.Track{}).Where("id = ?", t.ID).Updates(updates).Error; err != nil {
		return platformerrors.New(ctx, platformerrors.LayerRepository, platformerrors.KindInternal, "update track", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Track{}).Error; err != nil {
		return platformerrors.New(ctx, platformerrors.LayerRepository, platformerrors.KindInternal, "delete track", err)
	}
	return nil
}

func mapEntity(e entities.Track) domain.Track {
	return domain.Track{
		ID:             e.ID,
		OwnerUserID:    e.OwnerUserID,
		Title:          e.Title,
		Public:         e.Public,
		CiphertextPath: e.CiphertextPath,
		ContentHash:    e.ContentHash,
		CreatedAt:      e.CreatedAt,
	}
}
