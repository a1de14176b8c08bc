package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/pokedex/internal/models"
)

var DefaultRoles = []models.Role{
	{Name: "Admin", Slug: "admin"},
	{Name: "User", Slug: "user"},
}

// EnsureRoles inserts the roles whose slug is not stored yet.
func (r *GormRepo) EnsureRoles(ctx context.Context, roles ...models.Role) error {
	if len(roles) == 0 {
		return nil
	}
	rows := make([]models.Role, len(roles))
	copy(rows, roles)
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&rows).Error
}

func (r *GormRepo) RoleBySlug(ctx context.Context, slug string) (*models.Role, error) {
	var role models.Role
	if err := r.DB.WithContext(ctx).Where("slug = ?", slug).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (r *GormRepo) AssignRole(ctx context.Context, userID uint, slug string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.Where("slug = ?", slug).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoleNotFound
			}
			return err
		}
		if ok, err := exists(tx, &models.User{}, "id = ?", userID); err != nil {
			return err
		} else if !ok {
			return ErrNotFound
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "role_id"}},
			DoNothing: true,
		}).Create(&models.UserRole{UserID: userID, RoleID: role.ID}).Error
	})
}

func (r *GormRepo) RemoveRole(ctx context.Context, userID uint, slug string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.Where("slug = ?", slug).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoleNotFound
			}
			return err
		}
		return tx.Where("user_id = ? AND role_id = ?", userID, role.ID).Delete(&models.UserRole{}).Error
	})
}

// HasRole is true when at least one membership of the user matches slug.
func (r *GormRepo) HasRole(ctx context.Context, userID uint, slug string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Table("user_roles").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND roles.slug = ?", userID, slug).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
