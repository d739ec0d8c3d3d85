package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"inspection_log/internal/errs"
	"inspection_log/internal/model"
)

// GormUserRepository is a UserRepository backed by gorm
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new gorm user repository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) find(ctx context.Context, query string, args ...interface{}) ([]model.User, error) {
	var users []model.User
	q := r.db.WithContext(ctx)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	return users, nil
}

func (r *GormUserRepository) List(ctx context.Context) ([]model.User, error) {
	return r.find(ctx, "")
}

func (r *GormUserRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find user %d: %w", id, err)
	}
	return &user, nil
}

func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q: %w", username, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find user %q: %w", username, err)
	}
	return &user, nil
}

func (r *GormUserRepository) FindByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	return r.find(ctx, "role = ?", role)
}

func (r *GormUserRepository) FindByActive(ctx context.Context, active bool) ([]model.User, error) {
	return r.find(ctx, "active = ?", active)
}

func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("username %q already exists: %w", user.Username, errs.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *GormUserRepository) Update(ctx context.Context, user *model.User) error {
	prev := user.Version
	user.Version = prev + 1
	res := r.db.WithContext(ctx).
		Model(user).
		Where("version = ?", prev).
		Select("*").
		Omit("id", "created_at").
		Updates(user)
	if res.Error != nil {
		user.Version = prev
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("username %q already exists: %w", user.Username, errs.ErrConflict)
		}
		return fmt.Errorf("failed to update user %d: %w", user.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		user.Version = prev
		return fmt.Errorf("user %d was modified concurrently: %w", user.ID, errs.ErrConflict)
	}
	return nil
}

func (r *GormUserRepository) Delete(ctx context.Context, id int) error {
	if err := r.db.WithContext(ctx).Delete(&model.User{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	return nil
}
