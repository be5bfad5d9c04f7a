package user

import (
	"context"

	"gorm.io/gorm"

	domain "github.com/sectify/sectify/internal/domain/user"
	"github.com/sectify/sectify/internal/infrastructure/database/entities"
	"github.com/sectify/sectify/internal/platformerrors"
)

// Repository persists domain/user.User via GORM/Postgres.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var entity entities.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&entity).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerRepository, platformerrors.KindInternal, "find user by email", err)
	}
	u := mapEntity(entity)
	return &u, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var entity entities.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.New(ctx, platformerrors.LayerRepository, platformerrors.KindInternal, "find user by id", err)
	}
	u := mapEntity(entity)
	return &u, nil
}

func (r *Repository) Create(ctx context.Context, u *domain.User) error {
	entity := entities.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		MFASecret:    u.MFASecret,
	}
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return platformerrors.New(ctx, platformerrors.LayerRepository, platformerrors.KindInternal, "create user", err)
	}
	u.CreatedAt = entity.CreatedAt
	return nil
}

func mapEntity(e entities.User) domain.User {
	return domain.User{
		ID:           e.ID,
		Name:         e.Name,
		Email:        e.Email,
		PasswordHash: e.PasswordHash,
		MFASecret:    e.MFASecret,
		CreatedAt:    e.CreatedAt,
	}
}
